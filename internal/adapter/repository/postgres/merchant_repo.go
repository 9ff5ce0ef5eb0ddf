package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/usecase"
)

// MerchantRepository implements usecase.MerchantRepository.
type MerchantRepository struct {
	db DBTX
}

// NewMerchantRepository creates a new MerchantRepository.
func NewMerchantRepository(db DBTX) *MerchantRepository {
	return &MerchantRepository{db: db}
}

const merchantColumns = `id, name, phone, category, state_code, verified, created_at, updated_at`

// Create inserts a merchant. A taken phone number fails with domain.ErrMerchantExists.
func (r *MerchantRepository) Create(ctx context.Context, tx usecase.Transaction, merchant *domain.Merchant) error {
	query := `
		INSERT INTO merchants (` + merchantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := conn(tx, r.db).Exec(ctx, query,
		merchant.ID,
		merchant.Name,
		merchant.Phone,
		merchant.Category,
		merchant.StateCode,
		merchant.Verified,
		merchant.CreatedAt,
		merchant.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		return domain.ErrMerchantExists
	}
	if err != nil {
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

// GetByID retrieves a merchant by ID.
func (r *MerchantRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`
	return getMerchant(conn(tx, r.db).QueryRow(ctx, query, id))
}

// GetByPhone retrieves a merchant by its E.164 phone number.
func (r *MerchantRepository) GetByPhone(ctx context.Context, phone string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE phone = $1`
	return getMerchant(r.db.QueryRow(ctx, query, phone))
}

// SetVerified flips the verification flag.
func (r *MerchantRepository) SetVerified(ctx context.Context, tx usecase.Transaction, id string, verified bool, at time.Time) error {
	tag, err := conn(tx, r.db).Exec(ctx,
		`UPDATE merchants SET verified = $2, updated_at = $3 WHERE id = $1`,
		id, verified, at,
	)
	if err != nil {
		return fmt.Errorf("update merchant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMerchantNotFound
	}
	return nil
}

// List returns merchants matching filter, ordered by name.
func (r *MerchantRepository) List(ctx context.Context, filter domain.MerchantFilter) ([]*domain.Merchant, error) {
	var (
		conds []string
		args  []any
	)
	if filter.StateCode != "" {
		args = append(args, strings.ToUpper(filter.StateCode))
		conds = append(conds, fmt.Sprintf("state_code = $%d", len(args)))
	}
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		conds = append(conds, fmt.Sprintf("verified = $%d", len(args)))
	}

	query := `SELECT ` + merchantColumns + ` FROM merchants`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY name, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list merchants: %w", err)
	}
	defer rows.Close()

	merchants := make([]*domain.Merchant, 0)
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, err
		}
		merchants = append(merchants, m)
	}

	return merchants, rows.Err()
}

func getMerchant(row pgx.Row) (*domain.Merchant, error) {
	m, err := scanMerchant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMerchantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get merchant: %w", err)
	}
	return m, nil
}

func scanMerchant(row pgx.Row) (*domain.Merchant, error) {
	var m domain.Merchant
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Phone,
		&m.Category,
		&m.StateCode,
		&m.Verified,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
