// Package events publishes post-commit domain events.
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectLedgerRecorded        = "campuscoin.ledger.recorded"
	SubjectRedemptionProcessed   = "campuscoin.redemption.processed"
	SubjectWeeklyCreditCompleted = "campuscoin.weekly_credit.completed"
)

type LedgerRecorded struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Ledger        string    `json:"ledger"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	NewBalance    string    `json:"new_balance"`
	RecordedAt    time.Time `json:"recorded_at"`
}

type RedemptionProcessed struct {
	RedemptionID   string    `json:"redemption_id"`
	UserID         string    `json:"user_id"`
	Status         string    `json:"status"`
	CoinsRedeemed  int64     `json:"coins_redeemed"`
	AmountCredited string    `json:"amount_credited,omitempty"`
	ProcessedBy    string    `json:"processed_by"`
	ProcessedAt    time.Time `json:"processed_at"`
}

type WeeklyCreditCompleted struct {
	WeekStart string    `json:"week_start"`
	WeekEnd   string    `json:"week_end"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	RunAt     time.Time `json:"run_at"`
}

type Bus interface {
	Publish(subject string, data []byte) error
}

// Publisher serializes events onto a Bus. Failures are logged, never returned:
// callers publish only after their transaction has committed.
type Publisher struct {
	bus    Bus
	logger *zap.Logger
}

func NewPublisher(bus Bus, logger *zap.Logger) *Publisher {
	if bus == nil {
		bus = NopBus{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{bus: bus, logger: logger}
}

func (p *Publisher) Publish(subject string, event any) {
	if p == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("encode event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.bus.Publish(subject, data); err != nil {
		p.logger.Warn("publish event", zap.String("subject", subject), zap.Error(err))
	}
}

type NATSBus struct {
	nc *nats.Conn
}

func NewNATSBus(nc *nats.Conn) *NATSBus {
	return &NATSBus{nc: nc}
}

func (b *NATSBus) Publish(subject string, data []byte) error {
	return b.nc.Publish(subject, data)
}

func (b *NATSBus) Close() {
	_ = b.nc.Drain()
}

// Connect returns a NATS-backed bus, or a NopBus when url is empty.
func Connect(url string) (Bus, error) {
	if url == "" {
		return NopBus{}, nil
	}
	nc, err := nats.Connect(url, nats.Name("campuscoin"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return NewNATSBus(nc), nil
}

type NopBus struct{}

func (NopBus) Publish(string, []byte) error {
	return nil
}
