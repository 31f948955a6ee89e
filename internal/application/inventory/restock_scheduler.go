package inventory

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// MonthLayout formato de mes usado por las predicciones (yyyyMM).
const MonthLayout = "200601"

// RestockPolicy parámetros de la reposición automática.
type RestockPolicy struct {
	Interval      time.Duration // periodo del barrido
	TargetLevel   int64         // nivel objetivo cuando no hay predicción
	AutomatedOnly bool          // solo pares con AutomatedRestock
	Concurrency   int           // llaves procesadas en paralelo
}

// SweepReport resumen de un barrido.
type SweepReport struct {
	Month       string
	Candidates  int
	Restocked   int
	Satisfied   int
	Quarantined int
	Failed      int
	Units       int64
}

// RestockScheduler barrido periódico que repone pares en LOW_IN_STOCK u OUT_OF_STOCK.
// Las predicciones se consultan antes de tomar el bloqueo de la llave; cada llave se
// audita contra su ledger y el incremento pasa por el coordinador.
type RestockScheduler struct {
	stockRepo repository.StockRepository
	forecasts repository.ForecastRepository
	auditor   KeyAuditor
	restocker Restocker
	policy    RestockPolicy
	log       *logger.Logger
	now       func() time.Time
}

// NewRestockScheduler construye el scheduler. forecasts puede ser nil (política fija).
func NewRestockScheduler(
	stockRepo repository.StockRepository,
	forecasts repository.ForecastRepository,
	auditor KeyAuditor,
	restocker Restocker,
	policy RestockPolicy,
	log *logger.Logger,
) *RestockScheduler {
	if policy.Concurrency <= 0 {
		policy.Concurrency = 4
	}
	if policy.Interval <= 0 {
		policy.Interval = 30 * 24 * time.Hour
	}
	return &RestockScheduler{
		stockRepo: stockRepo,
		forecasts: forecasts,
		auditor:   auditor,
		restocker: restocker,
		policy:    policy,
		log:       log,
		now:       time.Now,
	}
}

// Start ejecuta Sweep en cada tick hasta que ctx se cancela. Es independiente del servidor HTTP.
func (s *RestockScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.policy.Interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.policy.Interval).Msg("reposición automática programada")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reposición automática detenida")
			return
		case t := <-ticker.C:
			report, err := s.Sweep(ctx, t.Format(MonthLayout))
			ev := s.log.Info()
			if err != nil {
				ev = s.log.Error().Err(err)
			}
			ev.Str("month", report.Month).
				Int("candidates", report.Candidates).
				Int("restocked", report.Restocked).
				Int("satisfied", report.Satisfied).
				Int("quarantined", report.Quarantined).
				Int("failed", report.Failed).
				Int64("units", report.Units).
				Msg("barrido de reposición finalizado")
		}
	}
}

// Sweep recorre los pares bajo umbral y completa hasta el nivel objetivo. Reejecutarlo
// es idempotente: cada llave se relee justo antes de decidir.
func (s *RestockScheduler) Sweep(ctx context.Context, month string) (SweepReport, error) {
	if month == "" {
		month = s.now().Format(MonthLayout)
	}
	report := SweepReport{Month: month}

	candidates, err := s.stockRepo.List(ctx, repository.StockFilter{
		Availability:  []entity.Availability{entity.AvailabilityOutOfStock, entity.AvailabilityLow},
		AutomatedOnly: s.policy.AutomatedOnly,
	})
	if err != nil {
		return report, err
	}
	report.Candidates = len(candidates)

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.policy.Concurrency)
	for _, c := range candidates {
		key := c.Key()
		g.Go(func() error {
			outcome, units, err := s.restockKey(gctx, month, key)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeRestocked:
				report.Restocked++
				report.Units += units
			case outcomeSatisfied:
				report.Satisfied++
			case outcomeQuarantined:
				report.Quarantined++
			case outcomeFailed:
				report.Failed++
				if !domain.IsRetryable(err) {
					errs = append(errs, err)
				}
				s.log.Warn().Err(err).Str("key", key.String()).Msg("no se pudo reponer la llave")
			}
			// Un fallo en una llave no detiene el barrido.
			return nil
		})
	}
	_ = g.Wait()
	return report, errors.Join(errs...)
}

type restockOutcome int

const (
	outcomeSatisfied restockOutcome = iota
	outcomeRestocked
	outcomeQuarantined
	outcomeFailed
)

func (s *RestockScheduler) restockKey(ctx context.Context, month string, key entity.StockKey) (restockOutcome, int64, error) {
	target := s.policy.TargetLevel
	if s.forecasts != nil {
		f, err := s.forecasts.Get(ctx, month, key.WarehouseID, key.ProductID)
		if err != nil {
			return outcomeFailed, 0, err
		}
		if f != nil && f.SuggestedRestock > 0 {
			target = f.SuggestedRestock
		}
	}

	current, err := s.stockRepo.Get(ctx, key)
	if err != nil {
		return outcomeFailed, 0, err
	}
	if current == nil {
		// El par se eliminó entre el listado y la relectura.
		return outcomeSatisfied, 0, nil
	}
	if current.Quarantined {
		return outcomeQuarantined, 0, nil
	}
	if current.Availability == entity.AvailabilityInStock || current.Quantity >= target {
		return outcomeSatisfied, 0, nil
	}
	if s.auditor != nil {
		// Una llave con fallas abiertas queda en cuarentena y no se repone.
		if _, err := s.auditor.Audit(ctx, key); err != nil {
			if errors.Is(err, domain.ErrConsistency) {
				return outcomeQuarantined, 0, nil
			}
			return outcomeFailed, 0, err
		}
	}

	qty := target - current.Quantity
	_, err = s.restocker.Increment(ctx, key, qty, entity.ActionRestock, Reference{
		ID:        month,
		Type:      entity.ReferenceAutoRestock,
		Source:    entity.SourceSystem,
		ActorName: "system",
		Notes:     "reposición automática",
	})
	if err != nil {
		return outcomeFailed, 0, err
	}
	return outcomeRestocked, qty, nil
}
