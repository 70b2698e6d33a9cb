package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/rl1809/shop/internal/core/domain"
)

// ErrRetryable marks deadlocks and serialization failures. The unit of work
// that hit one can be run again as a whole.
var ErrRetryable = errors.New("retryable storage failure")

// mapError translates driver and gorm failures into domain error kinds.
// Errors already carrying a domain kind pass through unchanged.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrIllegalStateTransition),
		errors.Is(err, ErrRetryable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrConflict, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return fmt.Errorf("%s: %w: %v", op, domain.ErrConflict, err) // duplicate entry
		case 1205, 1213:
			return fmt.Errorf("%s: %w: %v", op, ErrRetryable, err) // lock wait timeout, deadlock
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w: %v", op, domain.ErrConflict, err) // unique_violation
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%s: %w: %v", op, ErrRetryable, err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"), strings.Contains(msg, "duplicate"):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrConflict, err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "deadlock"):
		return fmt.Errorf("%s: %w: %v", op, ErrRetryable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
