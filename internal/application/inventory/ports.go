package inventory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Snapshot y ledger se confirman juntos o no se confirma ninguno.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		eventRepo repository.ChangeEventRepository,
		stockRepo repository.StockRepository,
	) error) error
}

// KeyLocker serializa las mutaciones por llave (producto, bodega).
// Lock toma todas las llaves en orden estable y devuelve domain.ErrContention
// si no las obtiene dentro del timeout configurado.
type KeyLocker interface {
	Lock(ctx context.Context, keys ...entity.StockKey) (unlock func(), err error)
}

// Restocker lo que la reposición automática necesita del coordinador.
type Restocker interface {
	Increment(ctx context.Context, key entity.StockKey, quantity int64, action entity.ActionType, ref Reference) (*Result, error)
}

// Quarantiner marca una llave con falla de consistencia para excluirla de la reposición automática.
type Quarantiner interface {
	Quarantine(ctx context.Context, key entity.StockKey, reason string) error
}

// KeyAuditor verifica una llave contra su ledger. Devuelve un error que envuelve
// domain.ErrConsistency si encontró fallas abiertas (y aisló la llave).
type KeyAuditor interface {
	Audit(ctx context.Context, key entity.StockKey) (*AuditReport, error)
}
