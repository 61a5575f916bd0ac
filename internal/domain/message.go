package domain

import (
	"context"
	"time"
)

// RawMessage is a feasibility request as consumed from the message broker.
// Commit acknowledges the message; it may be nil for sources without
// acknowledgement.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   map[string]string
	Commit    func(ctx context.Context) error
}

// EvaluatedRequest pairs a decoded request with its verdict, ready to be
// published.
type EvaluatedRequest struct {
	Key         []byte
	Request     RequestRecord
	Verdict     Verdict
	EvaluatedAt time.Time
}
