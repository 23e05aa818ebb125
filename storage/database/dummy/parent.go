package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/parent"
)

type parentRepository struct {
	db *parentTable
}

var _ parent.Repository = (*parentRepository)(nil) // interface compliance check

func NewParentRepository(db *DB) *parentRepository {
	return &parentRepository{db: db.parent}
}

func (repo *parentRepository) CheckEmailUniqueness(_ context.Context, email string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.table {
		if strings.EqualFold(p.Email, email) {
			return parent.ErrEmailExists
		}
	}
	return nil
}

func (repo *parentRepository) CreateParent(_ context.Context, p parent.Parent, _ ...core.DBExecutor) (parent.Parent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = uuid.New().String()
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *parentRepository) GetParent(_ context.Context, filter parent.GetFilter, _ ...core.DBExecutor) (parent.Parent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.db.table[filter.ID]; ok {
			return *p, nil
		}
		return parent.Parent{}, parent.ErrNotFound
	}
	for _, p := range repo.db.table {
		if strings.EqualFold(p.Email, filter.Email) {
			return *p, nil
		}
	}
	return parent.Parent{}, parent.ErrNotFound
}
