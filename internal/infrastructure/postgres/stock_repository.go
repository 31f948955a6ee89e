package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

const stockColumns = `product_id, warehouse_id, quantity, availability, automated_restock, quarantined, updated_at`

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el snapshot de un producto en una bodega; nil si el par no existe.
func (r *StockRepo) Get(ctx context.Context, key entity.StockKey) (*entity.Stock, error) {
	query := `SELECT ` + stockColumns + ` FROM inventory_stock WHERE product_id = $1 AND warehouse_id = $2`
	return r.one(ctx, query, key)
}

// GetForUpdate obtiene el snapshot y bloquea la fila hasta el fin de la tx (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.Stock, error) {
	query := `SELECT ` + stockColumns + ` FROM inventory_stock WHERE product_id = $1 AND warehouse_id = $2 FOR UPDATE`
	return r.one(ctx, query, key)
}

// Create inserta el par; domain.ErrAlreadyAssigned si ya existe.
func (r *StockRepo) Create(ctx context.Context, s *entity.Stock) error {
	query := `INSERT INTO inventory_stock (` + stockColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		s.ProductID, s.WarehouseID, s.Quantity, string(s.Availability), s.AutomatedRestock, s.Quarantined, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyAssigned
		}
		return fmt.Errorf("insert stock: %w", err)
	}
	return nil
}

func (r *StockRepo) Update(ctx context.Context, s *entity.Stock) error {
	query := `
		UPDATE inventory_stock
		SET quantity = $3, availability = $4, automated_restock = $5, quarantined = $6, updated_at = $7
		WHERE product_id = $1 AND warehouse_id = $2`
	tag, err := r.q.Exec(ctx, query,
		s.ProductID, s.WarehouseID, s.Quantity, string(s.Availability), s.AutomatedRestock, s.Quarantined, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *StockRepo) Delete(ctx context.Context, key entity.StockKey) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM inventory_stock WHERE product_id = $1 AND warehouse_id = $2`,
		key.ProductID, key.WarehouseID)
	if err != nil {
		return fmt.Errorf("delete stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *StockRepo) List(ctx context.Context, f repository.StockFilter) ([]*entity.Stock, error) {
	query := `SELECT ` + stockColumns + ` FROM inventory_stock WHERE TRUE`
	var args []any
	pos := 1
	if f.WarehouseID != "" {
		query += fmt.Sprintf(" AND warehouse_id = $%d", pos)
		args = append(args, f.WarehouseID)
		pos++
	}
	if f.ProductID != "" {
		query += fmt.Sprintf(" AND product_id = $%d", pos)
		args = append(args, f.ProductID)
		pos++
	}
	if len(f.Availability) > 0 {
		levels := make([]string, len(f.Availability))
		for i, a := range f.Availability {
			levels[i] = string(a)
		}
		query += fmt.Sprintf(" AND availability = ANY($%d)", pos)
		args = append(args, levels)
		pos++
	}
	if f.AutomatedOnly {
		query += " AND automated_restock"
	}
	query += " ORDER BY warehouse_id, product_id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, f.Limit)
		pos++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, f.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *StockRepo) one(ctx context.Context, query string, key entity.StockKey) (*entity.Stock, error) {
	s, err := scanStock(r.q.QueryRow(ctx, query, key.ProductID, key.WarehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		// lock_timeout se traduce en el TxRunner.
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}

func scanStock(row pgx.Row) (*entity.Stock, error) {
	var s entity.Stock
	var availability string
	if err := row.Scan(&s.ProductID, &s.WarehouseID, &s.Quantity, &availability,
		&s.AutomatedRestock, &s.Quarantined, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Availability = entity.Availability(availability)
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}
