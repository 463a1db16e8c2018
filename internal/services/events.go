package services

import (
	"context"
	"fmt"
	"time"

	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/pkg/logger"
)

// EngagementEvent describes one committed status change.
type EngagementEvent struct {
	Action     string          `json:"action"` // <kind>.<to>, e.g. application.accepted
	Kind       engagement.Kind `json:"kind"`
	EntityID   uint            `json:"entity_id"`
	From       string          `json:"from,omitempty"`
	To         string          `json:"to"`
	ActorID    uint            `json:"actor_id,omitempty"`
	ActorRole  engagement.Role `json:"actor_role"`
	Target     *engagement.Ref `json:"target,omitempty"`
	Recipients []uint          `json:"recipients"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func newEvent(actor engagement.Actor, kind engagement.Kind, id uint, from, to string, recipients ...uint) EngagementEvent {
	return EngagementEvent{
		Action:     string(kind) + "." + to,
		Kind:       kind,
		EntityID:   id,
		From:       from,
		To:         to,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Recipients: recipients,
	}
}

func (e EngagementEvent) withTarget(ref engagement.Ref) EngagementEvent {
	e.Target = &ref
	return e
}

// EventPublisher receives events after their transaction commits.
type EventPublisher interface {
	Publish(events ...EngagementEvent)
}

// EventDispatcher hands events to the task queue. Enqueue failures are
// logged; the transition itself has already committed.
type EventDispatcher struct {
	queue TaskQueue
}

func NewEventDispatcher(queue TaskQueue) *EventDispatcher {
	return &EventDispatcher{queue: queue}
}

func (d *EventDispatcher) Publish(events ...EngagementEvent) {
	for i := range events {
		ev := events[i]
		if err := d.queue.Enqueue(&ev); err != nil {
			logger.Warn().Err(err).Str("action", ev.Action).Uint("entity_id", ev.EntityID).Msg("[Events] enqueue failed")
		}
	}
}

// NewEventProcessor returns the queue handler that records an event in the
// audit log and fans it out to connected streams.
func NewEventProcessor(hub *SSEHub) func(context.Context, *EngagementEvent) error {
	return func(ctx context.Context, ev *EngagementEvent) error {
		var actorID *uint
		if ev.ActorID != 0 {
			id := ev.ActorID
			actorID = &id
		}
		// entries are filed under the fulfillment target when there is one
		kind, id := ev.Kind, ev.EntityID
		if ev.Target != nil {
			kind, id = ev.Target.Kind.Kind(), ev.Target.ID
		}
		msg := fmt.Sprintf("%s #%d %s -> %s by %s", ev.Kind, ev.EntityID, ev.From, ev.To, ev.ActorRole)
		LogEntity("info", "engagement", ev.Action, msg, actorID, string(kind), id, ev)

		if hub != nil {
			hub.Publish(*ev)
		}
		return nil
	}
}
