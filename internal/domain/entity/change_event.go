package entity

import "time"

// ActionType tipo de cambio registrado en el ledger.
type ActionType string

const (
	ActionRestock          ActionType = "RESTOCK"
	ActionOrder            ActionType = "ORDER"
	ActionAdjustment       ActionType = "ADJUSTMENT"
	ActionTransferIn       ActionType = "TRANSFER_IN"
	ActionTransferOut      ActionType = "TRANSFER_OUT"
	ActionProductAssign    ActionType = "PRODUCT_ASSIGN"
	ActionSystemCorrection ActionType = "SYSTEM_CORRECTION"
)

// Valid indica si el tipo de acción es conocido.
func (a ActionType) Valid() bool {
	switch a {
	case ActionRestock, ActionOrder, ActionAdjustment, ActionTransferIn,
		ActionTransferOut, ActionProductAssign, ActionSystemCorrection:
		return true
	}
	return false
}

// Source origen del cambio.
type Source string

const (
	SourceSystem Source = "SYSTEM"
	SourceManual Source = "MANUAL"
	SourceAPI    Source = "API"
	SourceImport Source = "IMPORT"
)

// Valid indica si el origen es conocido.
func (s Source) Valid() bool {
	switch s {
	case SourceSystem, SourceManual, SourceAPI, SourceImport:
		return true
	}
	return false
}

// Tipos de referencia habituales.
const (
	ReferenceOrder        = "ORDER"
	ReferenceReceipt      = "RECEIPT"
	ReferenceAdjustment   = "ADJUSTMENT"
	ReferenceTransfer     = "TRANSFER"
	ReferenceInitialStock = "INITIAL_STOCK"
	ReferenceAutoRestock  = "AUTO_RESTOCK"
)

// ChangeEvent hecho inmutable que describe un delta de stock para (producto, bodega).
// PreviousQuantity/NewQuantity son una foto denormalizada para auditoría; la fuente
// de verdad es la suma reconstruida.
type ChangeEvent struct {
	ID               string
	ProductID        string
	WarehouseID      string
	ActionType       ActionType
	QuantityChange   int64
	PreviousQuantity int64
	NewQuantity      int64
	Source           Source
	ReferenceID      string
	ReferenceType    string
	ActorID          string
	ActorName        string
	Timestamp        time.Time
	Notes            string
	Metadata         map[string]any
}

// Key devuelve la llave de agregación del evento.
func (e *ChangeEvent) Key() StockKey {
	return StockKey{ProductID: e.ProductID, WarehouseID: e.WarehouseID}
}

// Before orden total (timestamp, id) usado por el ledger y la reconstrucción.
func (e *ChangeEvent) Before(o *ChangeEvent) bool {
	if !e.Timestamp.Equal(o.Timestamp) {
		return e.Timestamp.Before(o.Timestamp)
	}
	return e.ID < o.ID
}
