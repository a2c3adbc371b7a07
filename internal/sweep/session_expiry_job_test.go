package sweep

import (
	"context"
	"errors"
	"testing"

	"github.com/tailrace/lobby-backend/pkg/logger"
)

type fakeSweeper struct {
	swept int
	err   error
	calls int
}

func (f *fakeSweeper) SweepExpired(context.Context) (int, error) {
	f.calls++
	return f.swept, f.err
}

func TestSessionExpiryJobReportsSweptCount(t *testing.T) {
	sweeper := &fakeSweeper{swept: 3}
	job, err := NewSessionExpiryJob(SessionExpiryJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Sessions: sweeper,
	})
	if err != nil {
		t.Fatalf("NewSessionExpiryJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected sweeper called once, got %d", sweeper.calls)
	}
}

func TestSessionExpiryJobPropagatesError(t *testing.T) {
	sweeper := &fakeSweeper{swept: 1, err: errors.New("boom")}
	job, err := NewSessionExpiryJob(SessionExpiryJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Sessions: sweeper,
	})
	if err != nil {
		t.Fatalf("NewSessionExpiryJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
