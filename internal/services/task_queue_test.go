package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestTaskTypeEngagementEvent_Constant(t *testing.T) {
	if TaskTypeEngagementEvent != "engagement:event" {
		t.Errorf("TaskTypeEngagementEvent = %q", TaskTypeEngagementEvent)
	}
}

func TestSyncQueue_IsAsync(t *testing.T) {
	if NewSyncQueue().IsAsync() {
		t.Error("SyncQueue.IsAsync() should return false")
	}
	if !(&AsyncQueue{}).IsAsync() {
		t.Error("AsyncQueue.IsAsync() should return true")
	}
}

func TestSyncQueue_EnqueueWithoutProcessor(t *testing.T) {
	queue := NewSyncQueue()
	if err := queue.Enqueue(&EngagementEvent{Action: "project.open"}); err != nil {
		t.Errorf("Enqueue without processor should not error, got %v", err)
	}
	if err := queue.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestSyncQueue_CloseWaitsForProcessor(t *testing.T) {
	queue := NewSyncQueue()
	var handled int32
	queue.SetProcessor(func(ctx context.Context, ev *EngagementEvent) error {
		atomic.AddInt32(&handled, 1)
		if ev.EntityID == 2 {
			return errors.New("boom")
		}
		return nil
	})

	for i := uint(1); i <= 3; i++ {
		if err := queue.Enqueue(&EngagementEvent{EntityID: i}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	queue.Close()

	if got := atomic.LoadInt32(&handled); got != 3 {
		t.Errorf("handled = %d, expected 3", got)
	}
}

func TestEventDispatcher_EnqueuesEachEvent(t *testing.T) {
	queue := NewSyncQueue()
	var actions []string
	done := make(chan string, 4)
	queue.SetProcessor(func(ctx context.Context, ev *EngagementEvent) error {
		done <- ev.Action
		return nil
	})

	NewEventDispatcher(queue).Publish(
		EngagementEvent{Action: "application.accepted"},
		EngagementEvent{Action: "project.in_progress"},
	)
	queue.Close()
	close(done)
	for a := range done {
		actions = append(actions, a)
	}
	if len(actions) != 2 {
		t.Errorf("actions = %v", actions)
	}
}
