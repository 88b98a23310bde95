// Package company manages the companies registered for each client. Only
// registered companies can be referenced by ingested emails.
package company

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/znz-systems/fraudmail/internal/models"
	"github.com/znz-systems/fraudmail/internal/store"
)

const (
	maxNameLen   = 150
	maxDomainLen = 255
)

// Sentinel errors returned by Service methods.
var (
	ErrNotFound       = errors.New("company not found")
	ErrClientNotFound = errors.New("client not found")
	ErrAlreadyExists  = errors.New("company name already exists for client")
	ErrInUse          = errors.New("company still has emails")
	ErrInvalid        = errors.New("invalid company")
)

type Service struct {
	companies store.CompanyStore
}

func NewService(companies store.CompanyStore) *Service {
	return &Service{companies: companies}
}

func (s *Service) Create(ctx context.Context, params models.CompanyCreateParams) (*models.Company, error) {
	params.Name = strings.TrimSpace(params.Name)
	if err := validateName(params.Name); err != nil {
		return nil, err
	}
	domain, err := normalizeDomain(params.Domain)
	if err != nil {
		return nil, err
	}
	params.Domain = domain
	if params.IsActive == "" {
		params.IsActive = models.StatusActive
	}
	if !params.IsActive.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, params.IsActive)
	}
	if params.ClientID <= 0 {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalid)
	}

	c, err := s.companies.CreateCompany(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrCompanyExists):
			return nil, ErrAlreadyExists
		case errors.Is(err, store.ErrForeignKey):
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("creating company: %w", err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Company, error) {
	c, err := s.companies.GetCompanyByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting company: %w", err)
	}
	return c, nil
}

// List returns all companies, or only those of clientID when it is non-nil.
func (s *Service) List(ctx context.Context, clientID *int64) ([]models.Company, error) {
	companies, err := s.companies.ListCompanies(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	return companies, nil
}

func (s *Service) Update(ctx context.Context, id int64, patch models.CompanyPatch) (*models.Company, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if patch.Domain != nil {
		domain := strings.TrimSpace(*patch.Domain)
		if utf8.RuneCountInString(domain) > maxDomainLen {
			return nil, fmt.Errorf("%w: domain exceeds %d characters", ErrInvalid, maxDomainLen)
		}
		patch.Domain = &domain
	}
	if patch.IsActive != nil && !patch.IsActive.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, *patch.IsActive)
	}

	c, err := s.companies.UpdateCompany(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		case errors.Is(err, store.ErrCompanyExists):
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("updating company: %w", err)
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.companies.DeleteCompany(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrNotFound
		case errors.Is(err, store.ErrForeignKey):
			return ErrInUse
		}
		return fmt.Errorf("deleting company: %w", err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalid, maxNameLen)
	}
	return nil
}

func normalizeDomain(domain *string) (*string, error) {
	if domain == nil {
		return nil, nil
	}
	d := strings.TrimSpace(*domain)
	if d == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(d) > maxDomainLen {
		return nil, fmt.Errorf("%w: domain exceeds %d characters", ErrInvalid, maxDomainLen)
	}
	return &d, nil
}
