package sqlxrepos

import (
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/scholarlypay/core"
)

const pgUniqueViolation = pq.ErrorCode("23505")

// getExec prefers a service-provided executor (a transaction threaded through
// a call chain) over the repository's own connection.
func getExec(db *sqlx.DB, svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 {
		if exe, ok := svcExec[0].(sqlx.ExtContext); ok {
			return exe
		}
	}
	return db
}

// isUniqueViolation reports whether err is a psql duplicate-key error on the
// given constraint.
func isUniqueViolation(err error, constraint string) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == pgUniqueViolation && pqErr.Constraint == constraint
	}
	return false
}
