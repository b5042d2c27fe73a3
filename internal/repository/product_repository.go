package repository

import (
	"context"

	"github.com/segyhp/microcredit-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

type productRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByCode(ctx context.Context, code string) (*domain.Product, error) {
	query := `SELECT code, name, max_dsr_percent FROM products WHERE code = $1`

	var product domain.Product
	if err := r.db.GetContext(ctx, &product, query, code); err != nil {
		return nil, err
	}

	return &product, nil
}
