package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/course-catalog/model"
	"github.com/sahilchouksey/course-catalog/services"
	"github.com/sahilchouksey/course-catalog/utils/auth"
	"github.com/sahilchouksey/course-catalog/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	JobDanglingContentReport = "dangling_content_report"
	JobCleanupExpiredTokens  = "cleanup_expired_tokens"
	JobPruneJobLogs          = "prune_cron_job_logs"
)

// jobFunc does the work of one run and reports a message plus metadata for the job log
type jobFunc func(ctx context.Context) (string, map[string]interface{}, error)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron      *cron.Cron
	db        *gorm.DB
	registry  *services.ItemRegistry
	blacklist *auth.Blacklist
	log       *logger.Logger
	now       func() time.Time
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, registry *services.ItemRegistry, blacklist *auth.Blacklist, log *logger.Logger) *CronManager {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "cron")
	return &CronManager{
		// Create cron with seconds precision; a panicking job is logged, not fatal
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLogger{log}))),
		db:        db,
		registry:  registry,
		blacklist: blacklist,
		log:       log,
		now:       time.Now,
	}
}

// cronLogger routes the scheduler's own messages into the app logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}

// Start registers all jobs and starts the scheduler
func (m *CronManager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()
	m.log.Info("cron jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (m *CronManager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	jobs := []struct {
		spec    string
		name    string
		timeout time.Duration
		fn      jobFunc
	}{
		// Every hour: count content rows whose item is gone
		{"0 0 * * * *", JobDanglingContentReport, 5 * time.Minute, m.ReportDanglingContent},
		// Daily at 3 AM: drop expired blacklist rows
		{"0 0 3 * * *", JobCleanupExpiredTokens, 5 * time.Minute, m.CleanupExpiredTokens},
		// Daily at 3:30 AM: drop old job logs
		{"0 30 3 * * *", JobPruneJobLogs, 5 * time.Minute, m.PruneJobLogs},
	}

	for _, job := range jobs {
		job := job
		if _, err := m.cron.AddFunc(job.spec, func() {
			m.runJob(job.name, job.timeout, job.fn)
		}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
	}
	return nil
}

// runJob records a running row, executes fn, then closes the same row
func (m *CronManager) runJob(name string, timeout time.Duration, fn jobFunc) *model.CronJobLog {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entry := m.logJobStart(ctx, name)
	message, metadata, err := fn(ctx)
	if err != nil {
		m.logJobError(ctx, entry, err)
	} else {
		m.logJobComplete(ctx, entry, message, metadata)
	}
	return entry
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(ctx context.Context, jobName string) *model.CronJobLog {
	m.log.Info("starting job", "job", jobName)

	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronStatusRunning,
		StartedAt: m.now(),
		Metadata:  datatypes.JSON("{}"),
	}
	if err := m.db.WithContext(ctx).Create(entry).Error; err != nil {
		m.log.Error("failed to record job start", "job", jobName, "error", err)
	}
	return entry
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(ctx context.Context, entry *model.CronJobLog, message string, metadata map[string]interface{}) {
	m.log.Info("completed job", "job", entry.JobName, "message", message)

	meta, err := json.Marshal(metadata)
	if err != nil || metadata == nil {
		meta = []byte("{}")
	}
	m.finish(ctx, entry, map[string]interface{}{
		"status":   model.CronStatusCompleted,
		"message":  message,
		"metadata": datatypes.JSON(meta),
	})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(ctx context.Context, entry *model.CronJobLog, jobErr error) {
	m.log.Error("job failed", "job", entry.JobName, "error", jobErr)

	m.finish(ctx, entry, map[string]interface{}{
		"status":    model.CronStatusFailed,
		"error_msg": jobErr.Error(),
	})
}

func (m *CronManager) finish(ctx context.Context, entry *model.CronJobLog, fields map[string]interface{}) {
	if entry.ID == 0 {
		return
	}
	completedAt := m.now()
	fields["completed_at"] = completedAt
	fields["duration"] = completedAt.Sub(entry.StartedAt).Milliseconds()

	// the job context may be spent; the log row should still be closed
	writeCtx := context.WithoutCancel(ctx)
	if err := m.db.WithContext(writeCtx).Model(entry).Updates(fields).Error; err != nil {
		m.log.Error("failed to record job result", "job", entry.JobName, "error", err)
	}
}
