package settlement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xchain/exchange/internal/book"
	"github.com/xchain/exchange/internal/pricing"
)

// Message is the wire shape published per trade, decoupling match-time
// latency from chain RPC latency.
type Message struct {
	OrderID  uint64          `json:"order_id"`
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Maker    book.Party      `json:"maker"`
	Taker    book.Party      `json:"taker"`
}

func toMessage(symbol string, t book.Trade) Message {
	return Message{
		OrderID:  t.Taker.OrderID,
		Symbol:   symbol,
		Price:    t.Price,
		Quantity: t.Quantity,
		Maker:    t.Maker,
		Taker:    t.Taker,
	}
}

func (m Message) toTrade() book.Trade {
	return book.Trade{
		Symbol:   m.Symbol,
		Price:    m.Price,
		Quantity: m.Quantity,
		Maker:    m.Maker,
		Taker:    m.Taker,
	}
}

// Queue publishes settlement dispatch work to Kafka and drains it on the
// consumer side, decoupling match-time latency from chain RPC latency.
type Queue struct {
	writer       *kafka.Writer
	reader       *kafka.Reader
	orchestrator *Orchestrator
	symbols      *pricing.Table
	logger       *zap.Logger
}

func NewQueue(brokers []string, topic string, orchestrator *Orchestrator, symbols *pricing.Table, logger *zap.Logger) *Queue {
	return &Queue{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: "settlement-dispatch",
		}),
		orchestrator: orchestrator,
		symbols:      symbols,
		logger:       logger,
	}
}

// Publish enqueues t for asynchronous settlement dispatch.
func (q *Queue) Publish(ctx context.Context, symbol string, t book.Trade) error {
	payload, err := json.Marshal(toMessage(symbol, t))
	if err != nil {
		return err
	}
	return q.writer.WriteMessages(ctx, kafka.Message{Value: payload})
}

// Run drains the queue until ctx is cancelled, dispatching each message to
// the orchestrator and retrying transient read failures with backoff.
func (q *Queue) Run(ctx context.Context) {
	backoff := 500 * time.Millisecond
	for {
		msg, err := q.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Warn("settlement queue read failed, retrying", zap.Error(err))
			time.Sleep(backoff)
			continue
		}

		var m Message
		if err := json.Unmarshal(msg.Value, &m); err != nil {
			q.logger.Error("dropping malformed settlement message", zap.Error(err))
			continue
		}
		sym, ok := q.symbols.Lookup(m.Symbol)
		if !ok {
			q.logger.Error("dropping settlement message for unknown symbol", zap.String("symbol", m.Symbol))
			continue
		}
		rec := q.orchestrator.Dispatch(ctx, m.toTrade(), sym)
		q.logger.Info("settlement dispatched",
			zap.Uint64("order_id", rec.OrderID),
			zap.String("status", rec.Status.String()))
	}
}

// Close releases the writer and reader.
func (q *Queue) Close() error {
	if err := q.writer.Close(); err != nil {
		return err
	}
	return q.reader.Close()
}
