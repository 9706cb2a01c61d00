package scheduler

import (
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"visitor-counter/pkg/logger"
)

// NewLoggingWrapper logs start and finish of every run with an execution id
func NewLoggingWrapper(log *logger.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			jobLogger := log.WithFields(map[string]interface{}{
				"job_name":     jobName(j),
				"execution_id": uuid.New().String(),
			})

			start := time.Now()
			jobLogger.Debug("Job execution started")

			j.Run()

			jobLogger.WithField("duration", time.Since(start)).Info("Job execution finished")
		})
	}
}

// NewPanicRecoveryWrapper keeps a panicking job from taking the process down
func NewPanicRecoveryWrapper(log *logger.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(map[string]interface{}{
						"job_name":    jobName(j),
						"panic":       r,
						"stack_trace": string(debug.Stack()),
					}).Error("Job panicked")
				}
			}()

			j.Run()
		})
	}
}

func jobName(j cron.Job) string {
	if named, ok := j.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "anonymous"
}

// cronLogger adapts the zap logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func newCronLogger(log *logger.Logger) cron.Logger {
	return &cronLogger{log: log}
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
