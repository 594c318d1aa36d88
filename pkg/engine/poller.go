package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// errStillRunning signals the retry loop that the job has not finished.
var errStillRunning = errors.New("job still running")

// Poller waits for engine jobs to reach a terminal state.
type Poller struct {
	client *Client
	auth   *Authenticator

	interval    time.Duration
	maxInterval time.Duration
	strategy    string
	maxWait     time.Duration
}

// NewPoller creates a poller using the interval, backoff and deadline in cfg.
// Rejected status requests are retried once through auth.
func NewPoller(client *Client, auth *Authenticator, cfg Config) *Poller {
	cfg.applyDefaults()
	return &Poller{
		client:      client,
		auth:        auth,
		interval:    cfg.PollInterval,
		maxInterval: cfg.MaxPollInterval,
		strategy:    cfg.PollBackoff,
		maxWait:     cfg.MaxWait,
	}
}

func (p *Poller) schedule() backoff.BackOff {
	if p.strategy == BackoffExponential {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = p.interval
		b.MaxInterval = p.maxInterval
		b.RandomizationFactor = 0
		b.MaxElapsedTime = 0
		return b
	}
	return backoff.NewConstantBackOff(p.interval)
}

// Wait polls jobID until it completes. A FAILED or CANCELED job returns a
// KindJob error without further polls; exceeding the poller's maximum wait
// returns a KindTimeout error.
func (p *Poller) Wait(ctx context.Context, jobID string) (*Job, error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.maxWait)
	defer cancel()

	var (
		done  *Job
		polls int
	)
	operation := func() error {
		polls++
		var job *Job
		err := p.auth.Do(waitCtx, func(token string) error {
			j, err := p.client.JobStatus(waitCtx, token, jobID)
			if err != nil {
				return wrapErr(KindJob, "poll", jobID, err)
			}
			job = j
			return nil
		})
		if err != nil {
			if waitCtx.Err() != nil {
				return backoff.Permanent(waitCtx.Err())
			}
			return backoff.Permanent(err)
		}
		switch job.State {
		case JobCompleted:
			done = job
			return nil
		case JobFailed, JobCanceled:
			detail := job.ErrorMessage
			if detail == "" {
				detail = job.CancellationReason
			}
			return backoff.Permanent(&Error{Kind: KindJob, Op: "poll", JobID: jobID, State: job.State, Detail: detail})
		default:
			return errStillRunning
		}
	}
	notify := func(_ error, next time.Duration) {
		slog.Debug("waiting for engine job", "job_id", jobID, "poll", polls, "next", next)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(p.schedule(), waitCtx), notify)
	if err == nil {
		slog.Debug("engine job completed", "job_id", jobID, "polls", polls, "row_count", done.RowCount)
		return done, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if waitCtx.Err() != nil {
		return nil, &Error{Kind: KindTimeout, Op: "poll", JobID: jobID, Detail: "job did not finish within " + p.maxWait.String(), Err: waitCtx.Err()}
	}
	return nil, err
}
