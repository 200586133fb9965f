package dispatch

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
)

// EventLog receives lifecycle events (created, assigned, completed, failed)
// from the dispatcher. It is observation only: implementations must not
// assume they can influence control flow, and slow sinks delay the job that
// emitted the event. job is nil for system-level events.
type EventLog interface {
	Log(job *Job, message string)
}

// nopEvents discards everything; the default when event logging is off.
type nopEvents struct{}

func (nopEvents) Log(*Job, string) {}

// slogEvents forwards events to a structured logger, attaching the job's
// id, state, worker and request as attributes.
type slogEvents struct {
	logger *slog.Logger
}

// NewSlogEvents returns an EventLog backed by the given slog logger.
func NewSlogEvents(logger *slog.Logger) EventLog {
	return &slogEvents{logger: logger.With("component", "dispatch")}
}

func (s *slogEvents) Log(job *Job, message string) {
	if job == nil {
		s.logger.Info(message, "source", "system")
		return
	}
	s.logger.Info(message,
		"job_id", job.ID(),
		"state", job.State().String(),
		"region", job.region.name,
		"worker", job.Worker().String(),
		"request", job.request.String(),
	)
}

// consoleEvents prints events to stdout, system events dimmed and job
// events prefixed with the job's id:worker:request rendering.
type consoleEvents struct {
	system *color.Color
	job    *color.Color
}

// NewConsoleEvents returns an EventLog that writes colored lines to stdout.
func NewConsoleEvents() EventLog {
	return &consoleEvents{
		system: color.New(color.FgHiBlack),
		job:    color.New(color.FgCyan),
	}
}

func (c *consoleEvents) Log(job *Job, message string) {
	if job == nil {
		_, _ = c.system.Printf("System: %s\n", message)
		return
	}
	_, _ = c.job.Printf("%s: %s\n", job, message)
}

// eventf is a small convenience over EventLog.Log with formatting.
func eventf(sink EventLog, job *Job, format string, args ...any) {
	if _, ok := sink.(nopEvents); ok {
		return
	}
	sink.Log(job, fmt.Sprintf(format, args...))
}
