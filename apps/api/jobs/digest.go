package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/calendar"
)

type (
	// DigestCounter is notified of the number of digests sent by each run.
	DigestCounter interface {
		DigestsSent(n int)
	}

	DigestJob struct {
		calSvc  *calendar.Service
		attSvc  *attendance.Service
		logger  core.Logger
		counter DigestCounter
		timeout time.Duration
		today   func() calendar.Date // mockable
	}
)

func NewDigestJob(calSvc *calendar.Service, attSvc *attendance.Service, logger core.Logger, counter DigestCounter) *DigestJob {
	return &DigestJob{
		calSvc:  calSvc,
		attSvc:  attSvc,
		logger:  logger,
		counter: counter,
		timeout: 4 * time.Minute,
		today:   calendar.Today,
	}
}

// Run sends today's digests of the active cycle.
func (job *DigestJob) Run(ctx context.Context) (int, error) {
	cycle, err := job.calSvc.ActiveCycle(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "getting active cycle")
	}
	n, err := job.attSvc.SendDailyDigests(ctx, cycle.ID, job.today())
	if err != nil {
		return 0, errors.Wrap(err, "sending daily digests")
	}
	if job.counter != nil {
		job.counter.DigestsSent(n)
	}
	return n, nil
}

// runScheduled is the cron entry: errors are logged, never returned.
func (job *DigestJob) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), job.timeout)
	defer cancel()

	n, err := job.Run(ctx)
	if err != nil {
		if errors.Is(err, calendar.ErrNoActiveCycle) {
			job.logger.Warn("daily digest skipped: no active cycle")
			return
		}
		job.logger.Error(fmt.Sprintf("daily digest: %v", err), err)
		return
	}
	job.logger.Info(fmt.Sprintf("daily digest: %d message(s) sent", n))
}

// NewScheduler schedules `job` with the cron `spec` (standard 5 fields, or descriptors like @daily).
// Overlapping runs are skipped. The scheduler is not started.
func NewScheduler(spec string, job *DigestJob) (*cron.Cron, error) {
	logger := cronLogger{job.logger}
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(spec, job.runScheduled); err != nil {
		return nil, errors.Wrapf(err, "scheduling daily digest (%q)", spec)
	}
	return c, nil
}

// cronLogger reports the scheduler's own events (recovered panics, skipped runs) to a core.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg+formatKeysAndValues(keysAndValues), keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v", msg, err)+formatKeysAndValues(keysAndValues), err)
}

func formatKeysAndValues(keysAndValues []interface{}) string {
	var sb strings.Builder
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	return sb.String()
}
