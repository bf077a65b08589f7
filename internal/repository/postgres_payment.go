package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/payment-gateway/internal/domain"
)

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

const paymentColumns = `p.id, p.provider, p.provider_id, p.amount, p.currency_code, p.description,
	p.metadata, p.status, p.customer_name, p.customer_email, p.version, p.created_at, p.updated_at`

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO payments (
				id,
				provider,
				provider_id,
				amount,
				currency_code,
				description,
				metadata,
				status,
				customer_name,
				customer_email
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING version, created_at, updated_at
		`

		err := tx.QueryRow(
			ctx,
			query,
			payment.ID,
			payment.Provider,
			payment.ProviderID,
			payment.Amount,
			payment.CurrencyCode,
			payment.Description,
			metadataOrEmpty(payment.Metadata),
			payment.Status,
			payment.Customer.Name,
			payment.Customer.Email,
		).Scan(&payment.Version, &payment.CreatedAt, &payment.UpdatedAt)

		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return domain.ErrPaymentAlreadyExists
			}

			return err
		}

		return addProviderReference(ctx, tx, payment)
	})
}

func (p *PostgresPaymentRepository) GetById(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.id = $1`

	payment, err := scanPayment(p.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// GetByProviderId finds a payment by any provider id it was ever stamped with,
// e.g. a checkout session id after the payment moved on to its payment intent.
func (p *PostgresPaymentRepository) GetByProviderId(
	ctx context.Context,
	provider domain.Provider,
	providerID string) (*domain.Payment, error) {

	query := `SELECT ` + paymentColumns + `
		FROM payments p
		JOIN payment_provider_references r ON r.payment_id = p.id
		WHERE r.provider = $1 AND r.provider_id = $2`

	payment, err := scanPayment(p.db.QueryRow(ctx, query, provider, providerID))
	if err != nil {
		return nil, err
	}

	return payment, nil
}

var sortColumns = map[string]string{
	"created_at": "p.created_at",
	"updated_at": "p.updated_at",
	"amount":     "p.amount",
}

// GetAll returns one page of payments, newest first unless filters.Sort says
// otherwise. A page past the end has no rows to carry the windowed count, so
// its total is counted separately.
func (p *PostgresPaymentRepository) GetAll(
	ctx context.Context,
	filters domain.PaymentFilters) ([]*domain.Payment, *domain.PageMetadata, error) {

	filters.Pagination = filters.Pagination.Normalize()

	column, ok := sortColumns[filters.SortColumn()]
	direction := filters.SortDirection()
	if !ok {
		column, direction = "p.created_at", "DESC"
	}

	query := fmt.Sprintf(`SELECT count(*) OVER(), `+paymentColumns+`
		FROM payments p
		WHERE (p.provider = $1 OR $1 = '')
			AND (p.status = $2 OR $2 = '')
		ORDER BY %s %s, p.id ASC
		LIMIT $3 OFFSET $4`, column, direction)

	rows, err := p.db.Query(ctx, query, filters.Provider, filters.Status, filters.Limit(), filters.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	totalRecords := 0
	payments := []*domain.Payment{}

	for rows.Next() {
		var payment domain.Payment

		err := rows.Scan(
			&totalRecords,
			&payment.ID,
			&payment.Provider,
			&payment.ProviderID,
			&payment.Amount,
			&payment.CurrencyCode,
			&payment.Description,
			&payment.Metadata,
			&payment.Status,
			&payment.Customer.Name,
			&payment.Customer.Email,
			&payment.Version,
			&payment.CreatedAt,
			&payment.UpdatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		payments = append(payments, &payment)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	if len(payments) == 0 && filters.Page > 1 {
		totalRecords, err = p.count(ctx, filters)
		if err != nil {
			return nil, nil, err
		}
	}

	metadata := domain.NewPageMetadata(totalRecords, filters.Page, filters.PageSize)

	return payments, metadata, nil
}

func (p *PostgresPaymentRepository) count(ctx context.Context, filters domain.PaymentFilters) (int, error) {
	query := `
		SELECT count(*)
		FROM payments p
		WHERE (p.provider = $1 OR $1 = '')
			AND (p.status = $2 OR $2 = '')`

	var total int
	err := p.db.QueryRow(ctx, query, filters.Provider, filters.Status).Scan(&total)
	if err != nil {
		return 0, err
	}

	return total, nil
}

// Update writes the mutable fields back if nobody else updated the payment
// since it was read.
func (p *PostgresPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE payments
			SET provider = $1,
				provider_id = $2,
				status = $3,
				description = $4,
				metadata = $5,
				customer_name = $6,
				customer_email = $7,
				version = version + 1,
				updated_at = NOW()
			WHERE id = $8 AND version = $9
			RETURNING version, updated_at
		`

		err := tx.QueryRow(
			ctx,
			query,
			payment.Provider,
			payment.ProviderID,
			payment.Status,
			payment.Description,
			metadataOrEmpty(payment.Metadata),
			payment.Customer.Name,
			payment.Customer.Email,
			payment.ID,
			payment.Version,
		).Scan(&payment.Version, &payment.UpdatedAt)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrEditConflict
			}

			return err
		}

		return addProviderReference(ctx, tx, payment)
	})
}

func addProviderReference(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	if payment.ProviderID == "" {
		return nil
	}

	query := `
		INSERT INTO payment_provider_references (provider, provider_id, payment_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, provider_id) DO NOTHING
	`

	_, err := tx.Exec(ctx, query, payment.Provider, payment.ProviderID, payment.ID)
	return err
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var payment domain.Payment

	err := row.Scan(
		&payment.ID,
		&payment.Provider,
		&payment.ProviderID,
		&payment.Amount,
		&payment.CurrencyCode,
		&payment.Description,
		&payment.Metadata,
		&payment.Status,
		&payment.Customer.Name,
		&payment.Customer.Email,
		&payment.Version,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &payment, nil
}

func metadataOrEmpty(metadata map[string]string) map[string]string {
	if metadata == nil {
		return map[string]string{}
	}

	return metadata
}
