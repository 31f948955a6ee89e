package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.ChangeEventRepository = (*ChangeEventRepo)(nil)

const eventColumns = `id, product_id, warehouse_id, action_type, quantity_change, previous_quantity,
	new_quantity, source, reference_id, reference_type, actor_id, actor_name, occurred_at, notes, metadata`

// ChangeEventRepo ledger append-only sobre PostgreSQL (usable con pool o tx).
type ChangeEventRepo struct {
	q Querier
}

// NewChangeEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewChangeEventRepository(q Querier) *ChangeEventRepo {
	return &ChangeEventRepo{q: q}
}

// Append valida y persiste el evento. Asigna un UUIDv7 si no trae ID.
func (r *ChangeEventRepo) Append(ctx context.Context, e *entity.ChangeEvent) (string, error) {
	if err := inventory.ValidateEvent(e); err != nil {
		return "", err
	}
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generar id de evento: %w", err)
		}
		e.ID = id.String()
	}
	var metadata []byte
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return "", fmt.Errorf("encode metadata: %w", err)
		}
		metadata = b
	}
	source := e.Source
	if source == "" {
		source = entity.SourceAPI
	}
	query := `
		INSERT INTO inventory_change_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.ProductID, e.WarehouseID, string(e.ActionType), e.QuantityChange, e.PreviousQuantity,
		e.NewQuantity, string(source), e.ReferenceID, e.ReferenceType, e.ActorID, e.ActorName,
		e.Timestamp, e.Notes, metadata,
	)
	if err != nil {
		return "", fmt.Errorf("insert change event: %w", err)
	}
	return e.ID, nil
}

// FindByKey eventos de la llave dentro del rango, en orden (timestamp, id).
func (r *ChangeEventRepo) FindByKey(ctx context.Context, key entity.StockKey, tr entity.TimeRange) ([]entity.ChangeEvent, error) {
	return r.FindAll(ctx, repository.EventFilter{
		ProductID:   key.ProductID,
		WarehouseID: key.WarehouseID,
		From:        tr.From,
		To:          tr.To,
	})
}

func (r *ChangeEventRepo) FindByReference(ctx context.Context, referenceID, referenceType string) ([]entity.ChangeEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM inventory_change_events WHERE reference_id = $1`
	args := []any{referenceID}
	if referenceType != "" {
		query += ` AND reference_type = $2`
		args = append(args, referenceType)
	}
	query += ` ORDER BY occurred_at, id`
	return r.list(ctx, query, args...)
}

func (r *ChangeEventRepo) FindLatestByKeyAndAction(ctx context.Context, key entity.StockKey, action entity.ActionType) (*entity.ChangeEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM inventory_change_events
		WHERE product_id = $1 AND warehouse_id = $2 AND action_type = $3
		ORDER BY occurred_at DESC, id DESC LIMIT 1`
	return r.one(ctx, query, key.ProductID, key.WarehouseID, string(action))
}

// FindRecentByWarehouse más reciente primero.
func (r *ChangeEventRepo) FindRecentByWarehouse(ctx context.Context, warehouseID string, limit int) ([]entity.ChangeEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM inventory_change_events
		WHERE warehouse_id = $1 ORDER BY occurred_at DESC, id DESC LIMIT $2`
	return r.list(ctx, query, warehouseID, limit)
}

// FindAll listado filtrado en orden (timestamp, id). Limit 0 devuelve todo.
func (r *ChangeEventRepo) FindAll(ctx context.Context, f repository.EventFilter) ([]entity.ChangeEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM inventory_change_events WHERE TRUE`
	var args []any
	pos := 1
	add := func(cond string, v any) {
		query += fmt.Sprintf(" AND "+cond, pos)
		args = append(args, v)
		pos++
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.WarehouseID != "" {
		add("warehouse_id = $%d", f.WarehouseID)
	}
	if f.ActionType != "" {
		add("action_type = $%d", string(f.ActionType))
	}
	if f.Source != "" {
		add("source = $%d", string(f.Source))
	}
	if f.ActorID != "" {
		add("actor_id = $%d", f.ActorID)
	}
	if f.From != nil {
		add("occurred_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("occurred_at <= $%d", *f.To)
	}
	if f.Search != "" {
		query += fmt.Sprintf(" AND (notes ILIKE $%d OR actor_name ILIKE $%d OR reference_id ILIKE $%d)", pos, pos, pos)
		args = append(args, "%"+f.Search+"%")
		pos++
	}
	query += " ORDER BY occurred_at, id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, f.Limit)
		pos++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, f.Offset)
	}
	return r.list(ctx, query, args...)
}

func (r *ChangeEventRepo) one(ctx context.Context, query string, args ...any) (*entity.ChangeEvent, error) {
	e, err := scanEvent(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get change event: %w", err)
	}
	return e, nil
}

func (r *ChangeEventRepo) list(ctx context.Context, query string, args ...any) ([]entity.ChangeEvent, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list change events: %w", err)
	}
	defer rows.Close()
	var out []entity.ChangeEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan change event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEvent(row pgx.Row) (*entity.ChangeEvent, error) {
	var (
		e        entity.ChangeEvent
		id       uuid.UUID
		action   string
		source   string
		metadata []byte
	)
	if err := row.Scan(
		&id, &e.ProductID, &e.WarehouseID, &action, &e.QuantityChange, &e.PreviousQuantity,
		&e.NewQuantity, &source, &e.ReferenceID, &e.ReferenceType, &e.ActorID, &e.ActorName,
		&e.Timestamp, &e.Notes, &metadata,
	); err != nil {
		return nil, err
	}
	e.ID = id.String()
	e.ActionType = entity.ActionType(action)
	e.Source = entity.Source(source)
	e.Timestamp = e.Timestamp.UTC()
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &e, nil
}
