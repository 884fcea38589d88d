package pub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const (
	MovementEventsChannel = "movement_events"

	EventTypeDeposit    = "movement.deposit"
	EventTypeWithdrawal = "movement.withdrawal"
	EventTypeTransfer   = "movement.transfer"
)

// MovementEventPublisher announces committed movements on a Redis pub/sub
// channel. Publishing is fire-and-forget: it runs after the unit of work has
// committed and never influences the outcome of the operation.
type MovementEventPublisher struct {
	rdb *redis.Client
}

func NewMovementEventPublisher(rdb *redis.Client) *MovementEventPublisher {
	return &MovementEventPublisher{rdb: rdb}
}

type MovementEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	MovementID  int64     `json:"movement_id"`
	Amount      int64     `json:"amount"`
	Account     int64     `json:"account,omitempty"`
	FromAccount int64     `json:"from_account,omitempty"`
	ToAccount   int64     `json:"to_account,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publish stamps the event with a ULID and sends it out.
func (p *MovementEventPublisher) Publish(ctx context.Context, event *MovementEvent) error {
	event.EventID = ulid.Make().String()
	event.Timestamp = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.rdb.Publish(ctx, MovementEventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Printf("[MovementEvent] Published: %s id=%d amount=%d",
		event.EventType, event.MovementID, event.Amount)
	return nil
}
