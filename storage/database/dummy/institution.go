package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/institution"
)

type institutionRepository struct {
	db *institutionTable
}

var _ institution.Repository = (*institutionRepository)(nil) // interface compliance check

func NewInstitutionRepository(db *DB) *institutionRepository {
	return &institutionRepository{db: db.institution}
}

func (repo *institutionRepository) CheckEmailUniqueness(_ context.Context, email string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, inst := range repo.db.table {
		if strings.EqualFold(inst.AdminEmail, email) {
			return institution.ErrEmailExists
		}
	}
	return nil
}

func (repo *institutionRepository) CreateInstitution(_ context.Context, inst institution.Institution, _ ...core.DBExecutor) (institution.Institution, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	inst.ID = uuid.New().String()
	repo.db.table[inst.ID] = &inst
	return inst, nil
}

func (repo *institutionRepository) GetInstitution(_ context.Context, filter institution.GetFilter, _ ...core.DBExecutor) (institution.Institution, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if inst, ok := repo.db.table[filter.ID]; ok {
			return *inst, nil
		}
		return institution.Institution{}, institution.ErrNotFound
	}
	for _, inst := range repo.db.table {
		if strings.EqualFold(inst.AdminEmail, filter.Email) {
			return *inst, nil
		}
	}
	return institution.Institution{}, institution.ErrNotFound
}
