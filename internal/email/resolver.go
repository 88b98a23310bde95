package email

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/znz-systems/fraudmail/internal/models"
)

// ResolveCompany returns the company registered under name for clientID.
// Matching is exact and case-sensitive. Client existence is not checked.
func (s *Service) ResolveCompany(ctx context.Context, clientID int64, name string) (*models.Company, error) {
	company, err := s.companies.GetCompanyByClientAndName(ctx, clientID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &CompanyNotParametrizedError{ClientID: clientID, CompanyName: name}
		}
		return nil, fmt.Errorf("looking up company: %w", err)
	}
	return company, nil
}
