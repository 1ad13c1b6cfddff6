package messaging

import (
	"context"
)

// Channels the service publishes on.
const (
	ChannelStatusChanged    = "appointments.status_changed"
	ChannelFeeChargeFailed  = "billing.fee_charge.failed"
	ChannelFeeChargeSettled = "billing.fee_charge.settled"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
