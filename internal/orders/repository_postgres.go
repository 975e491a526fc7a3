package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hydrakit/internal/model"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

// Connect opens a pool for dsn and makes sure the ledger table exists.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	ordersSQL := `
		CREATE TABLE IF NOT EXISTS kit_orders (
			cart_id       UUID PRIMARY KEY,
			session_id    VARCHAR(64) NOT NULL,
			product_line  VARCHAR(32) NOT NULL,
			name          VARCHAR(255) NOT NULL,
			total         NUMERIC(12,2) NOT NULL,
			product_ids   TEXT[] NOT NULL DEFAULT '{}',
			pdf_url       VARCHAR(1024) NOT NULL DEFAULT '',
			configuration JSONB NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := db.Exec(ctx, ordersSQL); err != nil {
		return err
	}
	indexSQL := `CREATE INDEX IF NOT EXISTS kit_orders_session_idx ON kit_orders (session_id, created_at DESC)`
	_, err := db.Exec(ctx, indexSQL)
	return err
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, o Order) error {
	query := `
		INSERT INTO kit_orders (
			cart_id,
			session_id,
			product_line,
			name,
			total,
			product_ids,
			pdf_url,
			configuration,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		o.CartID,
		o.SessionID,
		string(o.Line),
		o.Name,
		o.Total,
		o.ProductIDs,
		o.PDFURL,
		[]byte(o.Configuration),
		o.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

const selectOrder = `
	SELECT
		cart_id::text,
		session_id,
		product_line,
		name,
		total::float8,
		product_ids,
		pdf_url,
		configuration,
		created_at
	FROM kit_orders
`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o    Order
		line string
		cfg  []byte
	)
	err := row.Scan(&o.CartID, &o.SessionID, &line, &o.Name, &o.Total, &o.ProductIDs, &o.PDFURL, &cfg, &o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Line = model.ProductLine(line)
	o.Configuration = cfg
	o.CreatedAt = o.CreatedAt.UTC()
	if o.ProductIDs == nil {
		o.ProductIDs = make([]string, 0)
	}
	return o, nil
}

func (r *PostgresRepository) Get(ctx context.Context, cartID string) (Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, selectOrder+` WHERE cart_id = $1`, cartID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]Order, error) {
	rows, err := r.db.Query(ctx, selectOrder+` WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
