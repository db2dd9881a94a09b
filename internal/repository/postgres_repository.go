package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sneakersync/internal/model"
)

// PostgresRepository stores each brand in a products_<brand> table. The full
// document is kept as JSONB so it matches the Mongo layout field for field.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func table(b model.Brand) string {
	return pgx.Identifier{"products_" + b.Partition()}.Sanitize()
}

// Migrate creates the brand tables when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	for _, b := range model.Brands {
		_, err := r.pool.Exec(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id         UUID PRIMARY KEY,
				sku        TEXT NOT NULL UNIQUE,
				document   JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, table(b)))
		if err != nil {
			return fmt.Errorf("postgres: migrate %s: %w", b.Partition(), err)
		}
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, brand model.Brand, id string) (*model.CanonicalProduct, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, brand, "id = $1", uid)
}

func (r *PostgresRepository) FindBySKU(ctx context.Context, brand model.Brand, sku string) (*model.CanonicalProduct, error) {
	return r.findOne(ctx, brand, "sku = $1", sku)
}

func (r *PostgresRepository) findOne(ctx context.Context, brand model.Brand, where string, arg any) (*model.CanonicalProduct, error) {
	var (
		id  string
		doc []byte
	)
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT id::text, document FROM %s WHERE %s", table(brand), where), arg,
	).Scan(&id, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find %s: %w", brand.Partition(), err)
	}
	return decode(id, doc)
}

func (r *PostgresRepository) Insert(ctx context.Context, brand model.Brand, p model.CanonicalProduct) (string, error) {
	id := uuid.New()
	doc, err := encode(p)
	if err != nil {
		return "", err
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, sku, document) VALUES ($1, $2, $3)
		ON CONFLICT (sku) DO NOTHING`, table(brand)), id, p.SKU, doc)
	if err != nil {
		return "", fmt.Errorf("postgres: insert %s: %w", brand.Partition(), err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrDuplicate
	}
	return id.String(), nil
}

func (r *PostgresRepository) Replace(ctx context.Context, brand model.Brand, p model.CanonicalProduct) error {
	doc, err := encode(p)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET document = $2, updated_at = now() WHERE sku = $1`, table(brand)), p.SKU, doc)
	if err != nil {
		return fmt.Errorf("postgres: replace %s: %w", brand.Partition(), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, brand model.Brand) ([]model.CanonicalProduct, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		"SELECT id::text, document FROM %s ORDER BY created_at, id", table(brand)))
	if err != nil {
		return nil, fmt.Errorf("postgres: list %s: %w", brand.Partition(), err)
	}
	defer rows.Close()

	var out []model.CanonicalProduct
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("postgres: list %s: %w", brand.Partition(), err)
		}
		p, err := decode(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) SetPrice(ctx context.Context, brand model.Brand, id, price string) error {
	return r.patch(ctx, brand, id, []string{"price"}, price)
}

func (r *PostgresRepository) SetImage(ctx context.Context, brand model.Brand, id string, index int, path string) error {
	p, err := r.FindByID(ctx, brand, id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(p.Images) {
		return fmt.Errorf("image index %d out of range (%d images)", index, len(p.Images))
	}
	return r.patch(ctx, brand, id, []string{"Images", strconv.Itoa(index)}, path)
}

func (r *PostgresRepository) patch(ctx context.Context, brand model.Brand, id string, path []string, value string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET document = jsonb_set(document, $2::text[], $3::jsonb), updated_at = now()
		WHERE id = $1`, table(brand)), uid, path, string(v))
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", brand.Partition(), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func encode(p model.CanonicalProduct) ([]byte, error) {
	p.ID = ""
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode %s: %w", p.SKU, err)
	}
	return doc, nil
}

func decode(id string, doc []byte) (*model.CanonicalProduct, error) {
	var p model.CanonicalProduct
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("postgres: decode %s: %w", id, err)
	}
	p.ID = id
	return &p, nil
}
