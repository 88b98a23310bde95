package postgres

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"
	"github.com/znz-systems/fraudmail/internal/store"
)

// Constraint names declared in the migrations.
const (
	constraintEmailMessage = "uq_email_smtp_provider_msgid"
	constraintCompanyName  = "uq_company_client_name"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// classify maps constraint violations onto the store sentinels, keeping the
// driver error in the chain. Other errors are returned unchanged.
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeUniqueViolation:
		switch pqErr.Constraint {
		case constraintEmailMessage:
			return fmt.Errorf("%w: %w", store.ErrDuplicateMessage, err)
		case constraintCompanyName:
			return fmt.Errorf("%w: %w", store.ErrCompanyExists, err)
		}
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %w", store.ErrForeignKey, err)
	}
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
