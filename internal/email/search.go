package email

import (
	"context"
	"fmt"

	"github.com/znz-systems/fraudmail/internal/models"
)

// Search returns one page of the client's emails matching query together with
// the number of matches across all pages. page is 1-indexed; zero page or
// pageSize select the defaults. A query without any filter returns an empty
// page without touching the store.
func (s *Service) Search(ctx context.Context, clientID int64, query models.EmailQuery, page, pageSize int) (*models.EmailPage, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = s.opts.DefaultPageSize
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1", ErrInvalidPage)
	}
	if pageSize < 1 || pageSize > s.opts.MaxPageSize {
		return nil, fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalidPage, s.opts.MaxPageSize)
	}
	if query.From != nil && query.To != nil && query.From.After(*query.To) {
		return nil, ErrInvalidDateRange
	}

	result := &models.EmailPage{
		Items:    []models.Email{},
		Page:     page,
		PageSize: pageSize,
	}
	if !query.HasFilter() {
		return result, nil
	}

	query.Limit = pageSize
	query.Offset = (page - 1) * pageSize
	items, total, err := s.emails.SearchEmails(ctx, clientID, query)
	if err != nil {
		return nil, fmt.Errorf("searching emails: %w", err)
	}
	if items != nil {
		result.Items = items
	}
	result.Total = total
	return result, nil
}
