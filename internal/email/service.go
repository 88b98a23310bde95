// Package email ingests batches of client emails and searches stored emails.
package email

import (
	"context"

	"github.com/znz-systems/fraudmail/internal/models"
	"github.com/znz-systems/fraudmail/internal/store"
)

// CompanyLookup is the subset of CompanyStore needed to resolve company names.
type CompanyLookup interface {
	GetCompanyByClientAndName(ctx context.Context, clientID int64, name string) (*models.Company, error)
}

// Options bounds batch and page sizes. Zero values select the defaults.
type Options struct {
	MaxBatchSize    int
	DefaultPageSize int
	MaxPageSize     int
}

const (
	defaultMaxBatchSize    = 1000
	defaultDefaultPageSize = 20
	defaultMaxPageSize     = 200
)

type Service struct {
	emails    store.EmailStore
	companies CompanyLookup
	opts      Options
}

func NewService(emails store.EmailStore, companies CompanyLookup, opts Options) *Service {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = defaultMaxBatchSize
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = defaultMaxPageSize
	}
	if opts.DefaultPageSize <= 0 || opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = min(defaultDefaultPageSize, opts.MaxPageSize)
	}
	return &Service{
		emails:    emails,
		companies: companies,
		opts:      opts,
	}
}
