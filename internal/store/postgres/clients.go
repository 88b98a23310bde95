package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/znz-systems/fraudmail/internal/models"
)

const clientColumns = `id_client, public_id, name, is_active, created_at`

type ClientStore struct {
	db *sql.DB
}

func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

func (s *ClientStore) CreateClient(ctx context.Context, name string, isActive models.Status) (*models.Client, error) {
	c := &models.Client{
		PublicID: uuid.New(),
		Name:     name,
		IsActive: isActive,
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO clients (public_id, name, is_active)
		 VALUES ($1, $2, $3)
		 RETURNING id_client, created_at`,
		c.PublicID, c.Name, string(c.IsActive),
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

func (s *ClientStore) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id_client = $1`, id)
	return scanClient(row)
}

func (s *ClientStore) ListClients(ctx context.Context) ([]models.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY id_client ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]models.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// UpdateClient applies only the fields present in patch. An empty patch
// returns the stored row unchanged.
func (s *ClientStore) UpdateClient(ctx context.Context, id int64, patch models.ClientPatch) (*models.Client, error) {
	if patch.Empty() {
		return s.GetClientByID(ctx, id)
	}

	var (
		sets []string
		args []interface{}
	)
	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, "name = $"+itoa(len(args)))
	}
	if patch.IsActive != nil {
		args = append(args, string(*patch.IsActive))
		sets = append(sets, "is_active = $"+itoa(len(args)))
	}
	args = append(args, id)

	row := s.db.QueryRowContext(ctx,
		`UPDATE clients SET `+strings.Join(sets, ", ")+
			` WHERE id_client = $`+itoa(len(args))+
			` RETURNING `+clientColumns,
		args...,
	)
	c, err := scanClient(row)
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

// DeleteClient removes the client together with its companies and emails.
// It returns sql.ErrNoRows when no client has the given id.
func (s *ClientStore) DeleteClient(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id_client = $1`, id)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanClient(scanner rowScanner) (*models.Client, error) {
	var c models.Client
	if err := scanner.Scan(&c.ID, &c.PublicID, &c.Name, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
