package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"campushub/internal/domain"
)

const (
	pqUniqueViolation   = "23505"
	pqInvalidTextFormat = "22P02"
)

// classify maps driver errors onto domain errors. conflict is returned for
// unique violations; connection, shutdown and serialization failures become
// domain.ErrUnavailable so callers can retry them.
func classify(err error, conflict error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == pqUniqueViolation && conflict != nil:
			return conflict
		case pqErr.Code == pqInvalidTextFormat:
			// A malformed uuid cannot name an existing row.
			return domain.ErrNotFound
		case isTransientCode(pqErr.Code):
			return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
		}
		return err
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	return err
}

// isUniqueViolationOn reports whether err is a unique violation on an index
// whose name contains column.
func isUniqueViolationOn(err error, column string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && strings.Contains(pqErr.Constraint, column)
}

func isTransientCode(code pq.ErrorCode) bool {
	switch code {
	case "40001", "40P01", "57P01", "57P02", "57P03", "53300":
		return true
	}
	return strings.HasPrefix(string(code), "08")
}
