package store

import (
	"context"
	"errors"

	"github.com/znz-systems/fraudmail/internal/models"
)

// Constraint violations reported by store implementations.
var (
	ErrDuplicateMessage = errors.New("duplicate smtp message")
	ErrCompanyExists    = errors.New("company name already exists for client")
	ErrForeignKey       = errors.New("foreign key violation")
)

type ClientStore interface {
	CreateClient(ctx context.Context, name string, isActive models.Status) (*models.Client, error)
	GetClientByID(ctx context.Context, id int64) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	UpdateClient(ctx context.Context, id int64, patch models.ClientPatch) (*models.Client, error)
	DeleteClient(ctx context.Context, id int64) error
}

type CompanyStore interface {
	CreateCompany(ctx context.Context, params models.CompanyCreateParams) (*models.Company, error)
	GetCompanyByID(ctx context.Context, id int64) (*models.Company, error)
	GetCompanyByClientAndName(ctx context.Context, clientID int64, name string) (*models.Company, error)
	ListCompanies(ctx context.Context, clientID *int64) ([]models.Company, error)
	UpdateCompany(ctx context.Context, id int64, patch models.CompanyPatch) (*models.Company, error)
	DeleteCompany(ctx context.Context, id int64) error
}

type EmailStore interface {
	// CreateEmails inserts all rows in one transaction. Either every row is
	// persisted or none is.
	CreateEmails(ctx context.Context, params []models.EmailCreateParams) ([]models.Email, error)
	// SearchEmails returns one page of matches plus the count of all matches.
	SearchEmails(ctx context.Context, clientID int64, query models.EmailQuery) ([]models.Email, int, error)
}
