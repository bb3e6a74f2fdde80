package sinks

import "context"

// Sink delivers alerts to a downstream destination (SQS, SNS, Pub/Sub, HTTP).
type Sink interface {
	ID() string
	Type() string
	Notify(ctx context.Context, alert Alert) error
}
