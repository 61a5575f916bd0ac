package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
	"github.com/couchcryptid/grid-feasibility-service/internal/observability"
)

// SnapshotProvider supplies the station snapshot requests are evaluated against.
type SnapshotProvider interface {
	Snapshot() *domain.GridSnapshot
}

// FeasibilityTransformer implements Transformer by running the feasibility
// engine against the current snapshot.
type FeasibilityTransformer struct {
	engine    *domain.Engine
	snapshots SnapshotProvider
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewTransformer creates a FeasibilityTransformer.
func NewTransformer(engine *domain.Engine, snapshots SnapshotProvider, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *FeasibilityTransformer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FeasibilityTransformer{
		engine:    engine,
		snapshots: snapshots,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Transform decodes the request and evaluates it. Decoding and evaluation
// errors are returned unwrapped so callers can classify them.
func (t *FeasibilityTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.EvaluatedRequest, error) {
	rec, err := decodeRequest(raw.Value)
	if err != nil {
		t.countError(err)
		return domain.EvaluatedRequest{}, err
	}
	req, err := rec.ToRequest()
	if err != nil {
		t.countError(err)
		return domain.EvaluatedRequest{}, err
	}
	v, err := t.engine.Evaluate(req, t.snapshots.Snapshot())
	if err != nil {
		t.countError(err)
		return domain.EvaluatedRequest{}, err
	}

	t.metrics.FeasibilityChecks.WithLabelValues("pipeline", string(v.TrafficLight)).Inc()
	return domain.EvaluatedRequest{
		Key:         raw.Key,
		Request:     rec,
		Verdict:     v,
		EvaluatedAt: t.clock.Now().UTC(),
	}, nil
}

func (t *FeasibilityTransformer) countError(err error) {
	t.metrics.EvaluationErrors.WithLabelValues("pipeline", domain.ErrorKind(err)).Inc()
}

func decodeRequest(data []byte) (domain.RequestRecord, error) {
	var rec domain.RequestRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&rec); err != nil {
		return domain.RequestRecord{}, &domain.ValidationError{Field: "message", Reason: err.Error()}
	}
	return rec, nil
}
