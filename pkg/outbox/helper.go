package outbox

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"mailpilot/pkg/trace"
)

// InsertEventInTx marshals payload and stores it as a pending event inside tx.
func InsertEventInTx(
	ctx context.Context,
	tx pgx.Tx,
	repo *Repository,
	aggregateType string,
	aggregateID string,
	routingKey string,
	payload interface{},
) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return repo.InsertEvent(ctx, tx, &Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoutingKey:    routingKey,
		Payload:       payloadJSON,
		TraceID:       trace.FromContext(ctx),
		Status:        StatusPending,
	})
}

// Enqueue is InsertEventInTx bound to r.
func (r *Repository) Enqueue(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, routingKey string, payload any) error {
	return InsertEventInTx(ctx, tx, r, aggregateType, aggregateID, routingKey, payload)
}
