package sweep

import (
	"context"
	"fmt"

	"github.com/tailrace/lobby-backend/pkg/logger"
	"github.com/tailrace/lobby-backend/pkg/metrics"
)

// ExpirySweeper is the slice of the session lifecycle the job drives.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// SessionExpiryJobParams configure the expiry job.
type SessionExpiryJobParams struct {
	Logger   *logger.Logger
	Sessions ExpirySweeper
	Metrics  *metrics.JobMetrics
}

// NewSessionExpiryJob builds the job that expires overdue waiting sessions
// and refunds their creators.
func NewSessionExpiryJob(params SessionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session sweeper required")
	}
	return &sessionExpiryJob{
		logg:     params.Logger,
		sessions: params.Sessions,
		metrics:  params.Metrics,
	}, nil
}

type sessionExpiryJob struct {
	logg     *logger.Logger
	sessions ExpirySweeper
	metrics  *metrics.JobMetrics
}

func (j *sessionExpiryJob) Name() string { return "session-expiry" }

func (j *sessionExpiryJob) Run(ctx context.Context) error {
	swept, err := j.sessions.SweepExpired(ctx)
	j.metrics.AddSwept(swept)
	if err != nil {
		// partial progress still counts; surface the rest for the retry cycle
		return fmt.Errorf("session expiry sweep: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "sessions_expired", swept)
	j.logg.Info(logCtx, "session expiry sweep complete")
	return nil
}
