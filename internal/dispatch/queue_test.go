package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueueRunsJobsInOrder(t *testing.T) {
	q := NewQueue(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- q.Run(ctx) }()

	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		q.Post(func() { got = append(got, i) })
	}
	q.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not run")
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got %v, want ascending order", got)
		}
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestQueuePostAfterStopIsDropped(t *testing.T) {
	q := NewQueue(1)
	q.Stop()
	q.Stop() // idempotent

	ran := false
	q.Post(func() { ran = true })
	if err := q.Run(context.Background()); err != nil {
		t.Fatalf("Run() after Stop = %v, want nil", err)
	}
	if ran {
		t.Error("job posted after Stop should not run")
	}
	select {
	case <-q.Done():
	default:
		t.Error("Done() should be closed after Stop")
	}
}

func TestQueueSchedulerFiresOnPoster(t *testing.T) {
	q := NewQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx) //nolint:errcheck

	fired := make(chan struct{})
	s := QueueScheduler{Poster: q}
	s.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestQueueSchedulerStop(t *testing.T) {
	s := QueueScheduler{Poster: Immediate{}}
	fired := make(chan struct{}, 1)
	tm := s.AfterFunc(time.Hour, func() { fired <- struct{}{} })
	if !tm.Stop() {
		t.Fatal("Stop() = false for a pending timer")
	}
	select {
	case <-fired:
		t.Error("stopped timer fired")
	default:
	}
}
