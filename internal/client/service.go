package client

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

const maxNameLen = 60

// Sentinel errors returned by Service methods.
var (
	ErrNotFound = errors.New("client not found")
	ErrInvalid  = errors.New("invalid client")
)

type Service struct {
	clients store.ClientStore
}

func NewService(clients store.ClientStore) *Service {
	return &Service{clients: clients}
}

// Create registers a new client. An empty status defaults to ACTIVE.
func (s *Service) Create(ctx context.Context, name string, isActive models.Status) (*models.Client, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if isActive == "" {
		isActive = models.StatusActive
	}
	if !isActive.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, isActive)
	}

	c, err := s.clients.CreateClient(ctx, name, isActive)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Client, error) {
	c, err := s.clients.GetClientByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting client: %w", err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]models.Client, error) {
	clients, err := s.clients.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	return clients, nil
}

// Update applies the fields present in patch.
func (s *Service) Update(ctx context.Context, id int64, patch models.ClientPatch) (*models.Client, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if patch.IsActive != nil && !patch.IsActive.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, *patch.IsActive)
	}

	c, err := s.clients.UpdateClient(ctx, id, patch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating client: %w", err)
	}
	return c, nil
}

// Delete removes the client. Its companies and emails go with it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.clients.DeleteClient(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting client: %w", err)
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
