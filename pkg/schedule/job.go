package schedule

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/veritas-edu/campus-sdk/pkg/logging"
)

// Options bound a job run: a wall-clock timeout over all attempts and an
// attempt budget with exponential backoff between retries.
type Options struct {
	Timeout     time.Duration
	MaxAttempts int
	MaxBackoff  time.Duration
	JitterMax   time.Duration

	Logger *logrus.Entry
	Rand   *rand.Rand
}

func (o *Options) setDefaults() {
	if o.Timeout == 0 {
		o.Timeout = 5 * time.Minute
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 3
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = 60 * time.Second
	}
	if o.JitterMax == 0 {
		o.JitterMax = 200 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
}

type Job struct {
	name string
	fn   func(context.Context) error
	opts Options
}

func NewJob(name string, fn func(context.Context) error, opts Options) *Job {
	opts.setDefaults()
	return &Job{name: name, fn: fn, opts: opts}
}

// Run executes the job, retrying failed attempts until the attempt budget or
// the wall-clock timeout is exhausted. The terminal failure is both logged
// and returned so callers cannot silently drop it.
func (j *Job) Run(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, j.opts.Timeout)
	defer cancel()

	log := j.opts.Logger.WithField("job", j.name)

	var lastErr error
	for attempt := 1; attempt <= j.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := backoff(attempt-1, j.opts.MaxBackoff) + jitter(j.opts.Rand, j.opts.JitterMax)
			select {
			case <-runCtx.Done():
				lastErr = errors.Join(lastErr, runCtx.Err())
				log.WithError(lastErr).Errorf("job timed out after %d attempts", attempt-1)
				return lastErr
			case <-time.After(delay):
			}
		}

		err := j.fn(runCtx)
		if err == nil {
			return nil
		}
		lastErr = err
		log.WithError(err).Warnf("attempt %d/%d failed", attempt, j.opts.MaxAttempts)
	}

	log.WithError(lastErr).Errorf("job failed after %d attempts", j.opts.MaxAttempts)
	return lastErr
}

func backoff(attempts int, maxBackoff time.Duration) time.Duration {
	if attempts <= 0 {
		return 0
	}
	// 1s * 2^(attempts-1)
	seconds := math.Pow(2, float64(attempts-1))
	d := time.Duration(seconds * float64(time.Second))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func jitter(r *rand.Rand, maxJitter time.Duration) time.Duration {
	if maxJitter <= 0 || r == nil {
		return 0
	}
	return time.Duration(r.Int63n(int64(maxJitter) + 1)) //nolint:gosec
}
