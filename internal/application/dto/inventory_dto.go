package dto

import "time"

// AssignRequest body para POST /api/inventory/assign.
type AssignRequest struct {
	ProductID        string `json:"product_id"`
	WarehouseID      string `json:"warehouse_id"`
	Quantity         int64  `json:"quantity"`
	AutomatedRestock bool   `json:"automated_restock"`
}

// OrderLineRequest línea de un pedido.
type OrderLineRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
}

// OrderRequest body para POST /api/inventory/orders.
type OrderRequest struct {
	OrderID string             `json:"order_id"`
	Lines   []OrderLineRequest `json:"lines"`
}

// RestockRequest body para POST /api/inventory/restock.
type RestockRequest struct {
	ProductID   string         `json:"product_id"`
	WarehouseID string         `json:"warehouse_id"`
	Quantity    int64          `json:"quantity"`
	ReferenceID string         `json:"reference_id,omitempty"` // recibo de compra
	Source      string         `json:"source,omitempty"`       // API | IMPORT
	Notes       string         `json:"notes,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AdjustRequest body para POST /api/inventory/adjust.
// Correction=true registra SYSTEM_CORRECTION (levanta la cuarentena).
type AdjustRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Delta       int64  `json:"delta"`
	Reason      string `json:"reason"`
	Correction  bool   `json:"correction,omitempty"`
}

// TransferRequest body para POST /api/inventory/transfer.
type TransferRequest struct {
	ProductID       string `json:"product_id"`
	FromWarehouseID string `json:"from_warehouse_id"`
	ToWarehouseID   string `json:"to_warehouse_id"`
	Quantity        int64  `json:"quantity"`
	ReferenceID     string `json:"reference_id,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// AutomationRequest body para PATCH /api/inventory/stock/:product/:warehouse/automation.
type AutomationRequest struct {
	Enabled bool `json:"enabled"`
}

// MutationResponse transición confirmada de una llave.
type MutationResponse struct {
	ProductID        string    `json:"product_id"`
	WarehouseID      string    `json:"warehouse_id"`
	PreviousQuantity int64     `json:"previous_quantity"`
	NewQuantity      int64     `json:"new_quantity"`
	Availability     string    `json:"availability"`
	EventID          string    `json:"event_id"`
	Timestamp        time.Time `json:"timestamp"`
}

// TransferResponse ambos lados de una transferencia.
type TransferResponse struct {
	Out MutationResponse `json:"out"`
	In  MutationResponse `json:"in"`
}

// OrderResponse líneas descontadas de un pedido.
type OrderResponse struct {
	OrderID string             `json:"order_id"`
	Lines   []MutationResponse `json:"lines"`
}

// StockResponse snapshot actual.
type StockResponse struct {
	ProductID        string    `json:"product_id"`
	WarehouseID      string    `json:"warehouse_id"`
	Quantity         int64     `json:"quantity"`
	Availability     string    `json:"availability"`
	AutomatedRestock bool      `json:"automated_restock"`
	Quarantined      bool      `json:"quarantined"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StockAtResponse saldo reconstruido en un instante.
type StockAtResponse struct {
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	At          time.Time `json:"at"`
	Quantity    int64     `json:"quantity"`
}

// TimelinePointDTO punto del timeline reconstruido.
type TimelinePointDTO struct {
	ProductID      string    `json:"product_id"`
	WarehouseID    string    `json:"warehouse_id"`
	EventID        string    `json:"event_id"`
	Timestamp      time.Time `json:"timestamp"`
	ActionType     string    `json:"action_type"`
	QuantityChange int64     `json:"quantity_change"`
	Balance        int64     `json:"balance"`
}

// ChangeEventDTO evento del ledger.
type ChangeEventDTO struct {
	ID               string         `json:"id"`
	ProductID        string         `json:"product_id"`
	WarehouseID      string         `json:"warehouse_id"`
	ActionType       string         `json:"action_type"`
	QuantityChange   int64          `json:"quantity_change"`
	PreviousQuantity int64          `json:"previous_quantity"`
	NewQuantity      int64          `json:"new_quantity"`
	Source           string         `json:"source"`
	ReferenceID      string         `json:"reference_id,omitempty"`
	ReferenceType    string         `json:"reference_type,omitempty"`
	ActorID          string         `json:"actor_id,omitempty"`
	ActorName        string         `json:"actor_name,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
	Notes            string         `json:"notes,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ConsistencyFaultDTO falla detectada por la auditoría.
type ConsistencyFaultDTO struct {
	EventID  string    `json:"event_id,omitempty"`
	At       time.Time `json:"at"`
	Expected int64     `json:"expected"`
	Recorded int64     `json:"recorded"`
	Reason   string    `json:"reason"`
}

// AuditResponse resultado de auditar una llave.
type AuditResponse struct {
	ProductID   string                `json:"product_id"`
	WarehouseID string                `json:"warehouse_id"`
	Replayed    int64                 `json:"replayed"`
	Snapshot    *int64                `json:"snapshot"`
	EventCount  int                   `json:"event_count"`
	Consistent  bool                  `json:"consistent"`
	Quarantined bool                  `json:"quarantined"`
	Faults      []ConsistencyFaultDTO `json:"faults"`
}

// ExportRowDTO fila del timeline exportado con metadatos de catálogo.
type ExportRowDTO struct {
	TimelinePointDTO
	ProductSKU    string `json:"product_sku,omitempty"`
	ProductTitle  string `json:"product_title,omitempty"`
	WarehouseName string `json:"warehouse_name,omitempty"`
}

// ExportResponse página de exportación.
type ExportResponse struct {
	Rows []ExportRowDTO `json:"rows"`
	PageResponse
}

// SweepResponse resumen de un barrido de reposición.
type SweepResponse struct {
	Month       string `json:"month"`
	Candidates  int    `json:"candidates"`
	Restocked   int    `json:"restocked"`
	Satisfied   int    `json:"satisfied"`
	Quarantined int    `json:"quarantined"`
	Failed      int    `json:"failed"`
	Units       int64  `json:"units"`
}

// TopMoverDTO producto con sus unidades despachadas en el mes.
type TopMoverDTO struct {
	ProductID string `json:"product_id"`
	Units     int64  `json:"units"`
}

// DashboardSummaryDTO resumen de una bodega.
type DashboardSummaryDTO struct {
	WarehouseID string        `json:"warehouse_id"`
	Pairs       int           `json:"pairs"`
	Units       int64         `json:"units"`
	OutOfStock  int           `json:"out_of_stock"`
	LowInStock  int           `json:"low_in_stock"`
	InStock     int           `json:"in_stock"`
	Quarantined int           `json:"quarantined"`
	TodayIn     int64         `json:"today_in"`
	TodayOut    int64         `json:"today_out"`
	MonthIn     int64         `json:"month_in"`
	MonthOut    int64         `json:"month_out"`
	TopMovers   []TopMoverDTO `json:"top_movers"`
	DateLabel   string        `json:"date_label"`
}
