package email

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBatch             = errors.New("no emails to register")
	ErrBatchTooLarge          = errors.New("too many emails in batch")
	ErrInvalidSubmission      = errors.New("invalid email submission")
	ErrCompanyNotParametrized = errors.New("company is not parametrized")
	ErrDuplicateMessage       = errors.New("duplicate smtp message")
	ErrInvalidPage            = errors.New("invalid page")
	ErrInvalidDateRange       = errors.New("from_date must not be after to_date")
)

// CompanyNotParametrizedError names the company that could not be resolved
// for the client. It matches ErrCompanyNotParametrized.
type CompanyNotParametrizedError struct {
	ClientID    int64
	CompanyName string
}

func (e *CompanyNotParametrizedError) Error() string {
	return fmt.Sprintf("Company %s is not parametrized for client %d", e.CompanyName, e.ClientID)
}

func (e *CompanyNotParametrizedError) Is(target error) bool {
	return target == ErrCompanyNotParametrized
}

// DuplicateMessageError reports a (smtp_provider, smtp_message_id) collision.
// The pair is only known when the collision is inside the submitted batch;
// collisions with stored rows are detected by the database and stay generic.
// It matches ErrDuplicateMessage.
type DuplicateMessageError struct {
	SMTPProvider  string
	SMTPMessageID string
	err           error
}

func (e *DuplicateMessageError) Error() string {
	if e.SMTPProvider != "" || e.SMTPMessageID != "" {
		return fmt.Sprintf("emails with smtp_provider %q and smtp_message_id %q appear more than once in the batch",
			e.SMTPProvider, e.SMTPMessageID)
	}
	return "1 or more emails violate a uniqueness restriction (smtp_provider, smtp_message_id)"
}

func (e *DuplicateMessageError) Is(target error) bool {
	return target == ErrDuplicateMessage
}

func (e *DuplicateMessageError) Unwrap() error {
	return e.err
}

func invalidSubmission(index int, field, reason string) error {
	return fmt.Errorf("%w: emails[%d].%s %s", ErrInvalidSubmission, index, field, reason)
}
