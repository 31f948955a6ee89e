package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

var (
	_ Restocker   = (*FulfillmentCoordinator)(nil)
	_ Quarantiner = (*FulfillmentCoordinator)(nil)
)

// Reference vínculo del cambio con el objeto de negocio que lo causa y con quién lo hizo.
type Reference struct {
	ID        string
	Type      string
	Source    entity.Source
	ActorID   string
	ActorName string
	Notes     string
	Metadata  map[string]any
}

// Actor identidad de quien ejecuta una operación manual.
type Actor struct {
	ID   string
	Name string
}

// Result transición confirmada de una llave.
type Result struct {
	Key              entity.StockKey
	PreviousQuantity int64
	NewQuantity      int64
	Availability     entity.Availability
	EventID          string
	Timestamp        time.Time
}

// FulfillmentCoordinator único camino de mutación del stock. Cada operación toma el
// bloqueo de la llave (KeyLocker), abre una transacción (TxRunner), bloquea la fila
// del snapshot (SELECT FOR UPDATE), valida, actualiza el snapshot y agrega el evento
// al ledger. Llaves distintas no compiten entre sí.
type FulfillmentCoordinator struct {
	txRunner   TxRunner
	locker     KeyLocker
	classifier inventory.Classifier
	log        *logger.Logger
	now        func() time.Time
}

// NewFulfillmentCoordinator construye el coordinador.
func NewFulfillmentCoordinator(
	txRunner TxRunner,
	locker KeyLocker,
	classifier inventory.Classifier,
	log *logger.Logger,
) *FulfillmentCoordinator {
	return &FulfillmentCoordinator{
		txRunner:   txRunner,
		locker:     locker,
		classifier: classifier,
		log:        log,
		now:        time.Now,
	}
}

// WithClock reemplaza el reloj (tests y reimportaciones con fecha fija).
func (c *FulfillmentCoordinator) WithClock(now func() time.Time) *FulfillmentCoordinator {
	c.now = now
	return c
}

// Classifier clasificador usado en cada mutación.
func (c *FulfillmentCoordinator) Classifier() inventory.Classifier {
	return c.classifier
}

// ReserveAndDecrement descuenta quantity si hay stock suficiente y registra un evento ORDER.
// Con stock insuficiente devuelve *domain.InsufficientStockError y no escribe nada.
func (c *FulfillmentCoordinator) ReserveAndDecrement(ctx context.Context, key entity.StockKey, quantity int64, ref Reference) (*Result, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	if ref.Type == "" {
		ref.Type = entity.ReferenceOrder
	}
	results, err := c.mutate(ctx, []entity.StockKey{key}, func(eventRepo repository.ChangeEventRepository, stockRepo repository.StockRepository) ([]*Result, error) {
		stock, err := lockStock(ctx, stockRepo, key)
		if err != nil {
			return nil, err
		}
		res, err := c.apply(ctx, eventRepo, stockRepo, stock, -quantity, entity.ActionOrder, ref)
		if err != nil {
			return nil, err
		}
		return []*Result{res}, nil
	})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// Increment suma stock (RESTOCK o TRANSFER_IN). No tiene tope superior.
func (c *FulfillmentCoordinator) Increment(ctx context.Context, key entity.StockKey, quantity int64, action entity.ActionType, ref Reference) (*Result, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	if action != entity.ActionRestock && action != entity.ActionTransferIn {
		return nil, domain.NewValidationError("action_type", "increment admite RESTOCK o TRANSFER_IN")
	}
	results, err := c.mutate(ctx, []entity.StockKey{key}, func(eventRepo repository.ChangeEventRepository, stockRepo repository.StockRepository) ([]*Result, error) {
		stock, err := lockStock(ctx, stockRepo, key)
		if err != nil {
			return nil, err
		}
		res, err := c.apply(ctx, eventRepo, stockRepo, stock, quantity, action, ref)
		if err != nil {
			return nil, err
		}
		return []*Result{res}, nil
	})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// Adjust corrección con signo sobre el snapshot. action es ADJUSTMENT o SYSTEM_CORRECTION.
// SYSTEM_CORRECTION fija la cantidad en snapshot+delta, registra el evento contra el saldo
// reconstruido del ledger y levanta la cuarentena. El piso de cero se respeta.
func (c *FulfillmentCoordinator) Adjust(ctx context.Context, key entity.StockKey, delta int64, reason string, actor Actor, action entity.ActionType) (*Result, error) {
	if action == "" {
		action = entity.ActionAdjustment
	}
	if action != entity.ActionAdjustment && action != entity.ActionSystemCorrection {
		return nil, domain.NewValidationError("action_type", "adjust admite ADJUSTMENT o SYSTEM_CORRECTION")
	}
	if delta == 0 && action == entity.ActionAdjustment {
		return nil, domain.NewValidationError("delta", "no puede ser cero")
	}
	source := entity.SourceManual
	if actor.ID == "" {
		source = entity.SourceSystem
	}
	return c.adjust(ctx, key, delta, action, Reference{
		Type:      entity.ReferenceAdjustment,
		Source:    source,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Notes:     reason,
	})
}

func (c *FulfillmentCoordinator) adjust(ctx context.Context, key entity.StockKey, delta int64, action entity.ActionType, ref Reference) (*Result, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	results, err := c.mutate(ctx, []entity.StockKey{key}, func(eventRepo repository.ChangeEventRepository, stockRepo repository.StockRepository) ([]*Result, error) {
		stock, err := lockStock(ctx, stockRepo, key)
		if err != nil {
			return nil, err
		}
		change := delta
		if action == entity.ActionSystemCorrection {
			// La corrección parte del saldo reconstruido para que ledger y snapshot
			// vuelvan a coincidir en el valor corregido.
			target := stock.Quantity + delta
			if target < 0 {
				return nil, domain.NewValidationError("delta", "la corrección deja el stock negativo")
			}
			events, err := eventRepo.FindByKey(ctx, key, entity.TimeRange{})
			if err != nil {
				return nil, err
			}
			tl, _ := inventory.ReplayAll(key, 0, events)
			stock.Quantity = tl.Final()
			stock.Quarantined = false
			change = target - stock.Quantity
		}
		res, err := c.apply(ctx, eventRepo, stockRepo, stock, change, action, ref)
		if err != nil {
			return nil, err
		}
		return []*Result{res}, nil
	})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// AssignInitial crea el par (producto, bodega) con su cantidad inicial y registra PRODUCT_ASSIGN.
// Devuelve domain.ErrAlreadyAssigned si el snapshot ya existe. Si el par existió antes
// (historial conservado), el evento parte del saldo reconstruido del ledger para que
// la reconstrucción siga cuadrando.
func (c *FulfillmentCoordinator) AssignInitial(ctx context.Context, key entity.StockKey, quantity int64, automatedRestock bool, actor Actor) (*Result, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, domain.NewValidationError("quantity", "no puede ser negativa")
	}
	results, err := c.mutate(ctx, []entity.StockKey{key}, func(eventRepo repository.ChangeEventRepository, stockRepo repository.StockRepository) ([]*Result, error) {
		existing, err := stockRepo.GetForUpdate(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.ErrAlreadyAssigned
		}
		stock := &entity.Stock{
			ProductID:        key.ProductID,
			WarehouseID:      key.WarehouseID,
			AutomatedRestock: automatedRestock,
		}
		history, err := eventRepo.FindByKey(ctx, key, entity.TimeRange{})
		if err != nil {
			return nil, err
		}
		if len(history) > 0 {
			tl, _ := inventory.ReplayAll(key, 0, history)
			stock.Quantity = tl.Final()
			stock.UpdatedAt = tl.Points[len(tl.Points)-1].Timestamp
		}
		if err := stockRepo.Create(ctx, stock); err != nil {
			return nil, err
		}
		source := entity.SourceManual
		if actor.ID == "" {
			source = entity.SourceSystem
		}
		res, err := c.apply(ctx, eventRepo, stockRepo, stock, quantity-stock.Quantity, entity.ActionProductAssign, Reference{
			Type:      entity.ReferenceInitialStock,
			Source:    source,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Notes:     "Initial stock setup",
		})
		if err != nil {
			return nil, err
		}
		return []*Result{res}, nil
	})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// Transfer mueve quantity entre dos bodegas del mismo producto: TRANSFER_OUT en origen y
// TRANSFER_IN en destino, confirmados en la misma transacción.
func (c *FulfillmentCoordinator) Transfer(ctx context.Context, productID, fromWarehouseID, toWarehouseID string, quantity int64, ref Reference) (out, in *Result, err error) {
	from := entity.StockKey{ProductID: productID, WarehouseID: fromWarehouseID}
	to := entity.StockKey{ProductID: productID, WarehouseID: toWarehouseID}
	if err := validateKey(from); err != nil {
		return nil, nil, err
	}
	if err := validateKey(to); err != nil {
		return nil, nil, err
	}
	if from == to {
		return nil, nil, domain.NewValidationError("to_warehouse_id", "debe ser distinta de la bodega origen")
	}
	if quantity <= 0 {
		return nil, nil, domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	if ref.Type == "" {
		ref.Type = entity.ReferenceTransfer
	}
	results, err := c.mutate(ctx, []entity.StockKey{from, to}, func(eventRepo repository.ChangeEventRepository, stockRepo repository.StockRepository) ([]*Result, error) {
		// Filas bloqueadas en el mismo orden que el KeyLocker.
		locked := make(map[entity.StockKey]*entity.Stock, 2)
		for _, k := range entity.SortKeys([]entity.StockKey{from, to}) {
			s, err := lockStock(ctx, stockRepo, k)
			if err != nil {
				return nil, err
			}
			locked[k] = s
		}
		outRes, err := c.apply(ctx, eventRepo, stockRepo, locked[from], -quantity, entity.ActionTransferOut, ref)
		if err != nil {
			return nil, err
		}
		inRes, err := c.apply(ctx, eventRepo, stockRepo, locked[to], quantity, entity.ActionTransferIn, ref)
		if err != nil {
			return nil, err
		}
		return []*Result{outRes, inRes}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return results[0], results[1], nil
}

// RemovePairing elimina el snapshot del par; los eventos históricos se conservan.
func (c *FulfillmentCoordinator) RemovePairing(ctx context.Context, key entity.StockKey) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := c.mutate(ctx, []entity.StockKey{key}, func(_ repository.ChangeEventRepository, stockRepo repository.StockRepository) ([]*Result, error) {
		if _, err := lockStock(ctx, stockRepo, key); err != nil {
			return nil, err
		}
		return nil, stockRepo.Delete(ctx, key)
	})
	return err
}

// SetAutomatedRestock activa o desactiva la reposición automática del par.
func (c *FulfillmentCoordinator) SetAutomatedRestock(ctx context.Context, key entity.StockKey, enabled bool) error {
	return c.updateFlags(ctx, key, func(s *entity.Stock) { s.AutomatedRestock = enabled })
}

// Quarantine excluye la llave de la reposición automática hasta una SYSTEM_CORRECTION.
func (c *FulfillmentCoordinator) Quarantine(ctx context.Context, key entity.StockKey, reason string) error {
	err := c.updateFlags(ctx, key, func(s *entity.Stock) { s.Quarantined = true })
	if err == nil {
		c.log.Warn().Str("key", key.String()).Str("reason", reason).Msg("llave en cuarentena por inconsistencia")
	}
	return err
}

func (c *FulfillmentCoordinator) updateFlags(ctx context.Context, key entity.StockKey, fn func(*entity.Stock)) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := c.mutate(ctx, []entity.StockKey{key}, func(_ repository.ChangeEventRepository, stockRepo repository.StockRepository) ([]*Result, error) {
		stock, err := lockStock(ctx, stockRepo, key)
		if err != nil {
			return nil, err
		}
		fn(stock)
		return nil, stockRepo.Update(ctx, stock)
	})
	return err
}

// mutate toma los bloqueos de las llaves y ejecuta fn en una sola transacción.
// Ninguna E/S externa ocurre mientras se sostiene el bloqueo.
func (c *FulfillmentCoordinator) mutate(
	ctx context.Context,
	keys []entity.StockKey,
	fn func(repository.ChangeEventRepository, repository.StockRepository) ([]*Result, error),
) ([]*Result, error) {
	unlock, err := c.locker.Lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var results []*Result
	err = c.txRunner.Run(ctx, func(eventRepo repository.ChangeEventRepository, stockRepo repository.StockRepository) error {
		r, err := fn(eventRepo, stockRepo)
		if err != nil {
			return err
		}
		results = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// apply aplica delta al snapshot bloqueado, reclasifica y agrega el evento correspondiente.
func (c *FulfillmentCoordinator) apply(
	ctx context.Context,
	eventRepo repository.ChangeEventRepository,
	stockRepo repository.StockRepository,
	stock *entity.Stock,
	delta int64,
	action entity.ActionType,
	ref Reference,
) (*Result, error) {
	previous := stock.Quantity
	next := previous + delta
	if next < 0 {
		return nil, &domain.InsufficientStockError{
			ProductID:   stock.ProductID,
			WarehouseID: stock.WarehouseID,
			Requested:   -delta,
			Available:   previous,
		}
	}

	ts := c.nextTimestamp(stock.UpdatedAt)
	stock.Apply(next, c.classifier.Classify, ts)
	if err := stockRepo.Update(ctx, stock); err != nil {
		return nil, err
	}

	source := ref.Source
	if source == "" {
		source = entity.SourceAPI
	}
	event := &entity.ChangeEvent{
		ProductID:        stock.ProductID,
		WarehouseID:      stock.WarehouseID,
		ActionType:       action,
		QuantityChange:   delta,
		PreviousQuantity: previous,
		NewQuantity:      next,
		Source:           source,
		ReferenceID:      ref.ID,
		ReferenceType:    ref.Type,
		ActorID:          ref.ActorID,
		ActorName:        ref.ActorName,
		Timestamp:        ts,
		Notes:            ref.Notes,
		Metadata:         ref.Metadata,
	}
	id, err := eventRepo.Append(ctx, event)
	if err != nil {
		// El snapshot ya cambió dentro de la tx: el rollback lo revierte y el caller reintenta todo.
		c.log.Error().Err(err).Str("key", stock.Key().String()).Str("action", string(action)).
			Msg("append al ledger falló, transacción revertida")
		return nil, fmt.Errorf("append change event: %w", err)
	}

	return &Result{
		Key:              stock.Key(),
		PreviousQuantity: previous,
		NewQuantity:      next,
		Availability:     stock.Availability,
		EventID:          id,
		Timestamp:        ts,
	}, nil
}

// nextTimestamp garantiza timestamps estrictamente crecientes por llave aunque el
// reloj retroceda, de modo que el orden del ledger coincide con el orden de commit.
func (c *FulfillmentCoordinator) nextTimestamp(last time.Time) time.Time {
	ts := c.now().UTC().Truncate(time.Microsecond)
	if !ts.After(last) {
		ts = last.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return ts
}

func lockStock(ctx context.Context, stockRepo repository.StockRepository, key entity.StockKey) (*entity.Stock, error) {
	stock, err := stockRepo.GetForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	return stock, nil
}

func validateKey(key entity.StockKey) error {
	if key.ProductID == "" {
		return domain.NewValidationError("product_id", "es requerido")
	}
	if key.WarehouseID == "" {
		return domain.NewValidationError("warehouse_id", "es requerido")
	}
	return nil
}
