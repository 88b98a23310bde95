package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/znz-systems/fraudmail/internal/models"
)

const companyColumns = `id_company, public_id, client_id, name, domain, is_active, created_at`

type CompanyStore struct {
	db *sql.DB
}

func NewCompanyStore(db *sql.DB) *CompanyStore {
	return &CompanyStore{db: db}
}

func (s *CompanyStore) CreateCompany(ctx context.Context, params models.CompanyCreateParams) (*models.Company, error) {
	c := &models.Company{
		PublicID: uuid.New(),
		ClientID: params.ClientID,
		Name:     params.Name,
		Domain:   params.Domain,
		IsActive: params.IsActive,
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO companies (public_id, client_id, name, domain, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id_company, created_at`,
		c.PublicID, c.ClientID, c.Name, c.Domain, string(c.IsActive),
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

func (s *CompanyStore) GetCompanyByID(ctx context.Context, id int64) (*models.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id_company = $1`, id)
	return scanCompany(row)
}

// GetCompanyByClientAndName is an exact, case-sensitive match on name within
// the client's companies.
func (s *CompanyStore) GetCompanyByClientAndName(ctx context.Context, clientID int64, name string) (*models.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+`
		 FROM companies
		 WHERE client_id = $1 AND name = $2
		 ORDER BY id_company ASC
		 LIMIT 1`,
		clientID, name,
	)
	return scanCompany(row)
}

func (s *CompanyStore) ListCompanies(ctx context.Context, clientID *int64) ([]models.Company, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if clientID != nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+companyColumns+` FROM companies WHERE client_id = $1 ORDER BY id_company ASC`,
			*clientID)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+companyColumns+` FROM companies ORDER BY id_company ASC`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]models.Company, 0)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}

func (s *CompanyStore) UpdateCompany(ctx context.Context, id int64, patch models.CompanyPatch) (*models.Company, error) {
	if patch.Empty() {
		return s.GetCompanyByID(ctx, id)
	}

	var (
		sets []string
		args []interface{}
	)
	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, "name = $"+itoa(len(args)))
	}
	if patch.Domain != nil {
		args = append(args, *patch.Domain)
		sets = append(sets, "domain = $"+itoa(len(args)))
	}
	if patch.IsActive != nil {
		args = append(args, string(*patch.IsActive))
		sets = append(sets, "is_active = $"+itoa(len(args)))
	}
	args = append(args, id)

	row := s.db.QueryRowContext(ctx,
		`UPDATE companies SET `+strings.Join(sets, ", ")+
			` WHERE id_company = $`+itoa(len(args))+
			` RETURNING `+companyColumns,
		args...,
	)
	c, err := scanCompany(row)
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

// DeleteCompany fails with store.ErrForeignKey while emails still reference
// the company.
func (s *CompanyStore) DeleteCompany(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM companies WHERE id_company = $1`, id)
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

func scanCompany(scanner rowScanner) (*models.Company, error) {
	var c models.Company
	if err := scanner.Scan(&c.ID, &c.PublicID, &c.ClientID, &c.Name, &c.Domain, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
