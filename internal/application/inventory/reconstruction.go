package inventory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

var _ KeyAuditor = (*ReconstructionUseCase)(nil)

// ReconstructionUseCase responde consultas históricas reconstruyendo el ledger, sin
// confiar en el snapshot ni en los campos denormalizados de los eventos.
type ReconstructionUseCase struct {
	eventRepo   repository.ChangeEventRepository
	stockRepo   repository.StockRepository
	catalogRepo repository.CatalogRepository
	quarantiner Quarantiner
	log         *logger.Logger
}

// NewReconstructionUseCase construye el caso de uso. catalogRepo y quarantiner pueden ser nil.
func NewReconstructionUseCase(
	eventRepo repository.ChangeEventRepository,
	stockRepo repository.StockRepository,
	catalogRepo repository.CatalogRepository,
	quarantiner Quarantiner,
	log *logger.Logger,
) *ReconstructionUseCase {
	return &ReconstructionUseCase{
		eventRepo:   eventRepo,
		stockRepo:   stockRepo,
		catalogRepo: catalogRepo,
		quarantiner: quarantiner,
		log:         log,
	}
}

// GetStockAtTime saldo de la llave en el instante at (0 si no hay historial previo).
// Si la reconstrucción detecta una falla devuelve el saldo calculado junto al error.
func (uc *ReconstructionUseCase) GetStockAtTime(ctx context.Context, key entity.StockKey, at time.Time) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}
	events, err := uc.eventRepo.FindByKey(ctx, key, entity.TimeRange{To: &at})
	if err != nil {
		return 0, err
	}
	tl, err := uc.replay(ctx, key, events)
	return tl.BalanceAt(at), err
}

// GetHistory puntos del timeline dentro del rango. Los saldos son acumulados desde
// génesis aunque el rango empiece después del primer evento.
func (uc *ReconstructionUseCase) GetHistory(ctx context.Context, key entity.StockKey, r entity.TimeRange) ([]entity.TimelinePoint, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	events, err := uc.eventRepo.FindByKey(ctx, key, entity.TimeRange{To: r.To})
	if err != nil {
		return nil, err
	}
	tl, replayErr := uc.replay(ctx, key, events)
	points := make([]entity.TimelinePoint, 0, len(tl.Points))
	for _, p := range tl.Points {
		if r.Contains(p.Timestamp) {
			points = append(points, p)
		}
	}
	return points, replayErr
}

// Rebuild reconstruye desde génesis los timelines de las llaves indicadas.
// Las fallas de todas las llaves se devuelven unidas; los timelines se devuelven igual.
func (uc *ReconstructionUseCase) Rebuild(ctx context.Context, keys ...entity.StockKey) (map[entity.StockKey]inventory.Timeline, error) {
	out := make(map[entity.StockKey]inventory.Timeline, len(keys))
	var faults []error
	for _, key := range entity.SortKeys(keys) {
		events, err := uc.eventRepo.FindByKey(ctx, key, entity.TimeRange{})
		if err != nil {
			return nil, err
		}
		tl, err := uc.replay(ctx, key, events)
		if err != nil {
			faults = append(faults, err)
		}
		out[key] = tl
	}
	return out, errors.Join(faults...)
}

// Checkpoint posición de reanudación con el saldo de la llave en at.
func (uc *ReconstructionUseCase) Checkpoint(ctx context.Context, key entity.StockKey, at time.Time) (entity.Checkpoint, error) {
	if err := validateKey(key); err != nil {
		return entity.Checkpoint{}, err
	}
	events, err := uc.eventRepo.FindByKey(ctx, key, entity.TimeRange{To: &at})
	if err != nil {
		return entity.Checkpoint{}, err
	}
	tl, err := uc.replay(ctx, key, events)
	return tl.Checkpoint(), err
}

// Resume continúa la reconstrucción desde un checkpoint con los eventos posteriores.
// Produce el mismo resultado que reconstruir desde génesis.
func (uc *ReconstructionUseCase) Resume(ctx context.Context, cp entity.Checkpoint) (inventory.Timeline, error) {
	if err := validateKey(cp.Key); err != nil {
		return inventory.Timeline{}, err
	}
	r := entity.TimeRange{}
	if !cp.At.IsZero() {
		from := cp.At
		r.From = &from
	}
	events, err := uc.eventRepo.FindByKey(ctx, cp.Key, r)
	if err != nil {
		return inventory.Timeline{}, err
	}
	tl, err := inventory.ReplayFrom(cp, events)
	var fault *domain.ConsistencyError
	if errors.As(err, &fault) {
		uc.surface(ctx, cp.Key, []*domain.ConsistencyError{fault})
	}
	return tl, err
}

// AuditReport resultado de auditar una llave.
type AuditReport struct {
	Key         entity.StockKey
	Replayed    int64
	Snapshot    *int64
	EventCount  int
	Faults      []*domain.ConsistencyError
	Quarantined bool
}

// Audit reconstruye la llave y la compara con el snapshot. Las fallas posteriores a la
// última SYSTEM_CORRECTION se reportan como ConsistencyError (alerta operativa) y la
// llave queda en cuarentena; las anteriores se consideran resueltas.
func (uc *ReconstructionUseCase) Audit(ctx context.Context, key entity.StockKey) (*AuditReport, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	stock, err := uc.stockRepo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	// El snapshot se lee antes que el ledger: los eventos confirmados después tienen
	// timestamp posterior a stock.UpdatedAt y no cuentan para la comparación.
	events, err := uc.eventRepo.FindByKey(ctx, key, entity.TimeRange{})
	if err != nil {
		return nil, err
	}

	tl, faults := inventory.ReplayAll(key, 0, events)
	report := &AuditReport{Key: key, Replayed: tl.Final(), EventCount: len(tl.Points)}

	for i := len(tl.Points) - 1; i >= 0; i-- {
		if p := tl.Points[i]; p.ActionType == entity.ActionSystemCorrection {
			faults = openAfter(faults, p.Timestamp, p.EventID)
			break
		}
	}
	report.Faults = faults

	if stock != nil {
		q := stock.Quantity
		report.Snapshot = &q
		report.Quarantined = stock.Quarantined
		expected := tl.BalanceAt(stock.UpdatedAt)
		if q == expected && tl.Final() != expected {
			// Hay eventos posteriores al snapshot: si nadie lo tocó desde la primera
			// lectura, el snapshot quedó atrasado respecto al ledger.
			fresh, err := uc.stockRepo.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if fresh != nil && fresh.UpdatedAt.Equal(stock.UpdatedAt) {
				expected = tl.Final()
			}
		}
		if q != expected {
			report.Faults = append(report.Faults, &domain.ConsistencyError{
				ProductID:   key.ProductID,
				WarehouseID: key.WarehouseID,
				At:          stock.UpdatedAt,
				Expected:    expected,
				Recorded:    q,
				Reason:      "snapshot no coincide con la reconstrucción",
			})
		}
	}

	if len(report.Faults) == 0 {
		return report, nil
	}
	if uc.alert(ctx, key, report.Faults, stock) {
		report.Quarantined = true
	}

	errs := make([]error, 0, len(report.Faults))
	for _, f := range report.Faults {
		errs = append(errs, f)
	}
	return report, errors.Join(errs...)
}

// AuditAll audita todos los snapshots que cumplen el filtro.
func (uc *ReconstructionUseCase) AuditAll(ctx context.Context, f repository.StockFilter) ([]*AuditReport, error) {
	stocks, err := uc.stockRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	reports := make([]*AuditReport, 0, len(stocks))
	var faults []error
	for _, s := range stocks {
		report, err := uc.Audit(ctx, s.Key())
		if err != nil && !errors.Is(err, domain.ErrConsistency) {
			return nil, err
		}
		if err != nil {
			faults = append(faults, err)
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(faults...)
}

// ExportFilter filtros de exportación del timeline.
type ExportFilter struct {
	WarehouseID string
	ProductID   string
	From        *time.Time
	To          *time.Time
}

// ExportRow punto del timeline enriquecido con metadatos del catálogo.
type ExportRow struct {
	entity.TimelinePoint
	ProductSKU    string
	ProductTitle  string
	WarehouseName string
}

// ExportPage página de exportación.
type ExportPage struct {
	Rows   []ExportRow
	Total  int
	Limit  int
	Offset int
}

// ExportTimeline pagina los puntos reconstruidos de todas las llaves que cumplen el filtro,
// en orden (timestamp, producto, bodega, evento). El formato (PDF/Excel) lo decide el colaborador.
func (uc *ReconstructionUseCase) ExportTimeline(ctx context.Context, f ExportFilter, limit, offset int) (*ExportPage, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	events, err := uc.eventRepo.FindAll(ctx, repository.EventFilter{
		WarehouseID: f.WarehouseID,
		ProductID:   f.ProductID,
		To:          f.To,
	})
	if err != nil {
		return nil, err
	}

	window := entity.TimeRange{From: f.From, To: f.To}
	var points []entity.TimelinePoint
	var faults []error
	for key, group := range inventory.GroupByKey(events) {
		tl, err := uc.replay(ctx, key, group)
		if err != nil {
			faults = append(faults, err)
		}
		for _, p := range tl.Points {
			if window.Contains(p.Timestamp) {
				points = append(points, p)
			}
		}
	}
	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		return a.EventID < b.EventID
	})

	page := &ExportPage{Total: len(points), Limit: limit, Offset: offset, Rows: []ExportRow{}}
	if offset >= len(points) {
		return page, errors.Join(faults...)
	}
	end := offset + limit
	if end > len(points) {
		end = len(points)
	}

	products := map[string]*entity.ProductInfo{}
	warehouses := map[string]*entity.WarehouseInfo{}
	for _, p := range points[offset:end] {
		row := ExportRow{TimelinePoint: p}
		if uc.catalogRepo != nil {
			prod, ok := products[p.ProductID]
			if !ok {
				prod, err = uc.catalogRepo.GetProduct(ctx, p.ProductID)
				if err != nil {
					return nil, err
				}
				products[p.ProductID] = prod
			}
			if prod != nil {
				row.ProductSKU = prod.SKU
				row.ProductTitle = prod.Title
			}
			wh, ok := warehouses[p.WarehouseID]
			if !ok {
				wh, err = uc.catalogRepo.GetWarehouse(ctx, p.WarehouseID)
				if err != nil {
					return nil, err
				}
				warehouses[p.WarehouseID] = wh
			}
			if wh != nil {
				row.WarehouseName = wh.Name
			}
		}
		page.Rows = append(page.Rows, row)
	}
	return page, errors.Join(faults...)
}

// replay reconstruye la llave desde génesis y aísla las fallas que encuentre.
// Devuelve el timeline completo y la primera falla.
func (uc *ReconstructionUseCase) replay(ctx context.Context, key entity.StockKey, events []entity.ChangeEvent) (inventory.Timeline, error) {
	tl, faults := inventory.ReplayAll(key, 0, events)
	if len(faults) == 0 {
		return tl, nil
	}
	uc.surface(ctx, key, faults)
	return tl, faults[0]
}

// surface aísla las fallas detectadas fuera de Audit. Las anteriores a la última
// SYSTEM_CORRECTION de la llave ya están resueltas y solo se devuelven al caller.
func (uc *ReconstructionUseCase) surface(ctx context.Context, key entity.StockKey, faults []*domain.ConsistencyError) {
	last, err := uc.eventRepo.FindLatestByKeyAndAction(ctx, key, entity.ActionSystemCorrection)
	if err != nil {
		uc.log.Error().Err(err).Str("key", key.String()).Msg("no se pudo leer la última corrección")
	} else if last != nil {
		faults = openAfter(faults, last.Timestamp, last.ID)
	}
	if len(faults) == 0 {
		return
	}
	stock, err := uc.stockRepo.Get(ctx, key)
	if err != nil {
		uc.log.Error().Err(err).Str("key", key.String()).Msg("no se pudo leer el snapshot")
	}
	uc.alert(ctx, key, faults, stock)
}

// alert registra la alerta operativa y pone la llave en cuarentena si aún tiene snapshot.
// Devuelve true si la llave quedó en cuarentena con esta llamada.
func (uc *ReconstructionUseCase) alert(ctx context.Context, key entity.StockKey, faults []*domain.ConsistencyError, stock *entity.Stock) bool {
	first := faults[0]
	uc.log.Error().
		Str("key", key.String()).
		Str("event_id", first.EventID).
		Str("reason", first.Reason).
		Int64("expected", first.Expected).
		Int64("recorded", first.Recorded).
		Int("faults", len(faults)).
		Msg("ALERTA: inconsistencia de inventario, requiere auditoría manual")

	if stock == nil || stock.Quarantined || uc.quarantiner == nil {
		return false
	}
	if err := uc.quarantiner.Quarantine(ctx, key, first.Reason); err != nil {
		uc.log.Error().Err(err).Str("key", key.String()).Msg("no se pudo poner la llave en cuarentena")
		return false
	}
	return true
}

// openAfter fallas posteriores a la posición (at, eventID) en orden del ledger.
func openAfter(faults []*domain.ConsistencyError, at time.Time, eventID string) []*domain.ConsistencyError {
	open := faults[:0:0]
	for _, f := range faults {
		if f.At.After(at) || (f.At.Equal(at) && f.EventID > eventID) {
			open = append(open, f)
		}
	}
	return open
}
