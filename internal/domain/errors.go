package domain

import (
	"errors"
	"fmt"
	"time"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("par producto/bodega no encontrado")
	ErrValidation        = errors.New("evento de inventario inválido")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrAlreadyAssigned   = errors.New("el producto ya está asignado a la bodega")
	ErrContention        = errors.New("bloqueo de inventario no disponible, reintentar")
	ErrConsistency       = errors.New("inconsistencia en el historial de inventario")
)

// ValidationError detalla qué campo de un evento no pasó la validación.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError construye un ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError rechazo de negocio con el faltante exacto.
type InsufficientStockError struct {
	ProductID   string
	WarehouseID string
	Requested   int64
	Available   int64
}

// Shortfall unidades que faltan para cubrir la solicitud.
func (e *InsufficientStockError) Shortfall() int64 {
	return e.Requested - e.Available
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: producto %s bodega %s solicitado %d disponible %d (faltan %d)",
		ErrInsufficientStock.Error(), e.ProductID, e.WarehouseID, e.Requested, e.Available, e.Shortfall())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ConsistencyError falla detectada al reconstruir el historial (saldo negativo o
// campos denormalizados que no cuadran). Nunca se corrige automáticamente.
type ConsistencyError struct {
	ProductID   string
	WarehouseID string
	EventID     string
	At          time.Time
	Expected    int64 // saldo según la reconstrucción
	Recorded    int64 // valor registrado (evento o snapshot)
	Reason      string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: producto %s bodega %s evento %s (%s): esperado %d registrado %d",
		ErrConsistency.Error(), e.ProductID, e.WarehouseID, e.EventID, e.Reason, e.Expected, e.Recorded)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// IsRetryable indica si el caller puede reintentar la operación con backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention)
}
