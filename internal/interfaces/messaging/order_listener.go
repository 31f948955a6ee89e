package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// EventOrderCreated único tipo de evento que descuenta stock.
const EventOrderCreated = "OrderCreated"

const (
	maxAttempts  = 3
	retryBackoff = 200 * time.Millisecond
	readBackoff  = time.Second
)

// MessageReader subconjunto de *kafka.Reader que usa el listener.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderFulfiller descuenta un pedido completo (todas las líneas o ninguna).
type OrderFulfiller interface {
	FulfillOrder(ctx context.Context, orderID string, lines []inventory.OrderLine, actor inventory.Actor) ([]*inventory.Result, error)
}

// ReferenceFinder consulta si un pedido ya dejó eventos en el ledger.
type ReferenceFinder interface {
	FindByReference(ctx context.Context, referenceID, referenceType string) ([]entity.ChangeEvent, error)
}

// NewReader lector de consumer group para el tópico de pedidos.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.OrderTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
}

// OrderCreatedEvent mensaje publicado por el servicio de pedidos.
type OrderCreatedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

// OrderPayload pedido con sus líneas.
type OrderPayload struct {
	ID    string             `json:"id"`
	Lines []OrderLinePayload `json:"lines"`
	Actor ActorPayload       `json:"actor"`
}

// OrderLinePayload línea del pedido.
type OrderLinePayload struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
}

// ActorPayload quién originó el pedido.
type ActorPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrderListener consume pedidos creados y los descuenta vía FulfillOrder.
// Cada mensaje se confirma después de procesarlo; los pedidos que ya tienen
// eventos ORDER en el ledger se ignoran (reentregas).
type OrderListener struct {
	reader    MessageReader
	fulfiller OrderFulfiller
	refs      ReferenceFinder
	log       *logger.Logger
}

// NewOrderListener construye el listener.
func NewOrderListener(reader MessageReader, fulfiller OrderFulfiller, refs ReferenceFinder, log *logger.Logger) *OrderListener {
	return &OrderListener{reader: reader, fulfiller: fulfiller, refs: refs, log: log}
}

// Start lee mensajes hasta que ctx se cancela.
func (l *OrderListener) Start(ctx context.Context) {
	l.log.Info().Msg("listener de pedidos iniciado")
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.log.Info().Msg("listener de pedidos detenido")
				return
			}
			l.log.Error().Err(err).Msg("no se pudo leer mensaje de kafka")
			select {
			case <-ctx.Done():
				return
			case <-time.After(readBackoff):
			}
			continue
		}

		l.handle(ctx, msg.Value)

		if err := l.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			l.log.Error().Err(err).Int64("offset", msg.Offset).Msg("no se pudo confirmar el mensaje")
		}
	}
}

// handle procesa un mensaje. Los errores se registran; nunca detienen el consumo.
func (l *OrderListener) handle(ctx context.Context, value []byte) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.log.Error().Err(err).Msg("mensaje de pedido inválido")
		return
	}
	if event.EventType != EventOrderCreated {
		return
	}
	orderID := event.Payload.ID

	prior, err := l.refs.FindByReference(ctx, orderID, entity.ReferenceOrder)
	if err != nil {
		l.log.Error().Err(err).Str("order_id", orderID).Msg("no se pudo verificar el pedido en el ledger")
		return
	}
	if len(prior) > 0 {
		l.log.Debug().Str("order_id", orderID).Msg("pedido ya procesado, se ignora")
		return
	}

	lines := make([]inventory.OrderLine, 0, len(event.Payload.Lines))
	for _, ln := range event.Payload.Lines {
		lines = append(lines, inventory.OrderLine{ProductID: ln.ProductID, WarehouseID: ln.WarehouseID, Quantity: ln.Quantity})
	}
	actor := inventory.Actor{ID: event.Payload.Actor.ID, Name: event.Payload.Actor.Name}

	for attempt := 1; ; attempt++ {
		_, err = l.fulfiller.FulfillOrder(ctx, orderID, lines, actor)
		if err == nil || !domain.IsRetryable(err) || attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	switch {
	case err == nil:
		l.log.Info().Str("order_id", orderID).Int("lines", len(lines)).Msg("pedido descontado")
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		l.log.Warn().Err(err).Str("order_id", orderID).Msg("pedido rechazado")
	default:
		l.log.Error().Err(err).Str("order_id", orderID).Msg("no se pudo descontar el pedido")
	}
}
