package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/institution"
)

const (
	institutionColumns = `"id", "school_name", "admin_email", "password_hash", "created_at"`

	insertInstitutionSQL = `INSERT INTO "institution" (` + institutionColumns + `) ` +
		`VALUES (:id, :school_name, :admin_email, :password_hash, :created_at)`
)

type institutionRow struct {
	ID           string      `db:"id"`
	SchoolName   null.String `db:"school_name"`
	AdminEmail   null.String `db:"admin_email"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
}

func (r institutionRow) institution() institution.Institution {
	return institution.Institution{
		ID:           r.ID,
		SchoolName:   r.SchoolName.String,
		AdminEmail:   r.AdminEmail.String,
		Role:         institution.Role,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt,
	}
}

func newInstitutionRow(inst institution.Institution) institutionRow {
	return institutionRow{
		ID:           inst.ID,
		SchoolName:   null.NewString(inst.SchoolName, inst.SchoolName != ""),
		AdminEmail:   null.NewString(inst.AdminEmail, inst.AdminEmail != ""),
		PasswordHash: null.BytesFrom(inst.PasswordHash),
		CreatedAt:    inst.CreatedAt.UTC(),
	}
}

type institutionRepository struct {
	db *sqlx.DB
}

var _ institution.Repository = (*institutionRepository)(nil) // interface compliance check

func NewInstitutionRepository(db *sqlx.DB) *institutionRepository {
	return &institutionRepository{db: db}
}

func (repo *institutionRepository) CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error {
	var exists bool
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &exists,
		`SELECT EXISTS (SELECT 1 FROM "institution" WHERE "admin_email" = $1)`, email)
	if err != nil {
		return errors.Wrap(err, "checking institution email uniqueness")
	}
	if exists {
		return institution.ErrEmailExists
	}
	return nil
}

func (repo *institutionRepository) CreateInstitution(ctx context.Context, inst institution.Institution, exec ...core.DBExecutor) (institution.Institution, error) {
	inst.ID = uuid.New().String()
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), insertInstitutionSQL, newInstitutionRow(inst)); err != nil {
		if isUniqueViolation(err, "institution_admin_email_key") {
			return institution.Institution{}, institution.ErrEmailExists
		}
		return institution.Institution{}, errors.Wrap(err, "inserting institution")
	}
	return inst, nil
}

func (repo *institutionRepository) GetInstitution(ctx context.Context, filter institution.GetFilter, exec ...core.DBExecutor) (institution.Institution, error) {
	var row institutionRow
	exe := getExec(repo.db, exec)

	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			return institution.Institution{}, institution.ErrNotFound
		}
		err := sqlx.GetContext(ctx, exe, &row,
			`SELECT `+institutionColumns+` FROM "institution" WHERE "id" = $1`, filter.ID)
		if err != nil {
			if err == sql.ErrNoRows {
				return institution.Institution{}, institution.ErrNotFound
			}
			return institution.Institution{}, errors.Wrap(err, "finding institution by ID")
		}
	} else {
		err := sqlx.GetContext(ctx, exe, &row,
			`SELECT `+institutionColumns+` FROM "institution" WHERE "admin_email" = $1`, filter.Email)
		if err != nil {
			if err == sql.ErrNoRows {
				return institution.Institution{}, institution.ErrNotFound
			}
			return institution.Institution{}, errors.Wrap(err, "finding institution by email")
		}
	}
	return row.institution(), nil
}
