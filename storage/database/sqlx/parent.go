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
	"github.com/trezcool/scholarlypay/core/parent"
)

const (
	parentColumns = `"id", "first_name", "last_name", "email", "admission_number", "password_hash", "created_at"`

	insertParentSQL = `INSERT INTO "parent" (` + parentColumns + `) ` +
		`VALUES (:id, :first_name, :last_name, :email, :admission_number, :password_hash, :created_at)`
)

type parentRow struct {
	ID              string      `db:"id"`
	FirstName       null.String `db:"first_name"`
	LastName        null.String `db:"last_name"`
	Email           null.String `db:"email"`
	AdmissionNumber null.String `db:"admission_number"`
	PasswordHash    null.Bytes  `db:"password_hash"`
	CreatedAt       time.Time   `db:"created_at"`
}

func (r parentRow) parent() parent.Parent {
	return parent.Parent{
		ID:              r.ID,
		FirstName:       r.FirstName.String,
		LastName:        r.LastName.String,
		Email:           r.Email.String,
		AdmissionNumber: r.AdmissionNumber.String,
		Role:            parent.Role,
		PasswordHash:    r.PasswordHash.Bytes,
		CreatedAt:       r.CreatedAt,
	}
}

func newParentRow(p parent.Parent) parentRow {
	return parentRow{
		ID:              p.ID,
		FirstName:       null.NewString(p.FirstName, p.FirstName != ""),
		LastName:        null.NewString(p.LastName, p.LastName != ""),
		Email:           null.NewString(p.Email, p.Email != ""),
		AdmissionNumber: null.NewString(p.AdmissionNumber, p.AdmissionNumber != ""),
		PasswordHash:    null.BytesFrom(p.PasswordHash),
		CreatedAt:       p.CreatedAt.UTC(),
	}
}

type parentRepository struct {
	db *sqlx.DB
}

var _ parent.Repository = (*parentRepository)(nil) // interface compliance check

func NewParentRepository(db *sqlx.DB) *parentRepository {
	return &parentRepository{db: db}
}

func (repo *parentRepository) CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error {
	var exists bool
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &exists,
		`SELECT EXISTS (SELECT 1 FROM "parent" WHERE "email" = $1)`, email)
	if err != nil {
		return errors.Wrap(err, "checking parent email uniqueness")
	}
	if exists {
		return parent.ErrEmailExists
	}
	return nil
}

func (repo *parentRepository) CreateParent(ctx context.Context, p parent.Parent, exec ...core.DBExecutor) (parent.Parent, error) {
	p.ID = uuid.New().String()
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), insertParentSQL, newParentRow(p)); err != nil {
		if isUniqueViolation(err, "parent_email_key") {
			return parent.Parent{}, parent.ErrEmailExists
		}
		return parent.Parent{}, errors.Wrap(err, "inserting parent")
	}
	return p, nil
}

func (repo *parentRepository) GetParent(ctx context.Context, filter parent.GetFilter, exec ...core.DBExecutor) (parent.Parent, error) {
	var row parentRow
	exe := getExec(repo.db, exec)

	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			return parent.Parent{}, parent.ErrNotFound
		}
		err := sqlx.GetContext(ctx, exe, &row,
			`SELECT `+parentColumns+` FROM "parent" WHERE "id" = $1`, filter.ID)
		if err != nil {
			if err == sql.ErrNoRows {
				return parent.Parent{}, parent.ErrNotFound
			}
			return parent.Parent{}, errors.Wrap(err, "finding parent by ID")
		}
	} else {
		err := sqlx.GetContext(ctx, exe, &row,
			`SELECT `+parentColumns+` FROM "parent" WHERE "email" = $1`, filter.Email)
		if err != nil {
			if err == sql.ErrNoRows {
				return parent.Parent{}, parent.ErrNotFound
			}
			return parent.Parent{}, errors.Wrap(err, "finding parent by email")
		}
	}
	return row.parent(), nil
}
