// Package transcript renders audit records, queue entries and reminders for
// console output.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/iambrandonn/mailbot/internal/eventlog"
	"github.com/iambrandonn/mailbot/internal/reminder"
	"github.com/iambrandonn/mailbot/internal/task"
)

// Formatter formats records for console display. Colors degrade to plain
// text automatically when stdout is not a terminal.
type Formatter struct {
	done    *color.Color
	failed  *color.Color
	remind  *color.Color
	pending *color.Color
	dim     *color.Color
}

// NewFormatter creates a transcript formatter.
func NewFormatter() *Formatter {
	return &Formatter{
		done:    color.New(color.FgGreen),
		failed:  color.New(color.FgRed),
		remind:  color.New(color.FgCyan),
		pending: color.New(color.FgYellow),
		dim:     color.New(color.Faint),
	}
}

// FormatRecord formats one audit record as a single line.
func (f *Formatter) FormatRecord(rec eventlog.Record) string {
	var sb strings.Builder
	sb.WriteString(f.kindColor(rec.Kind).Sprintf("[%s]", rec.Kind))

	if rec.At != "" {
		sb.WriteString(" " + f.dim.Sprint(rec.At))
	}
	if rec.TaskID != "" {
		fmt.Fprintf(&sb, " task=%s", rec.TaskID)
	}
	if rec.Intent != "" {
		fmt.Fprintf(&sb, " intent=%s", rec.Intent)
	}
	if rec.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", rec.Detail)
	}
	return sb.String()
}

// FormatTask formats one queue entry for status listings.
func (f *Formatter) FormatTask(state task.State, t *task.Task) string {
	var sb strings.Builder
	sb.WriteString(f.stateColor(state).Sprintf("[%s]", state))
	fmt.Fprintf(&sb, " %s  %s", t.ID, t.Subject)
	if t.Intent != "" {
		fmt.Fprintf(&sb, "  intent=%s", t.Intent)
	}
	if t.RetryCount > 0 {
		fmt.Fprintf(&sb, "  retries=%d", t.RetryCount)
	}
	return sb.String()
}

// FormatReminder formats one persisted reminder with its time-until-fire.
func (f *Formatter) FormatReminder(r *reminder.Reminder, now time.Time) string {
	when := r.FireAt.Format("2006-01-02 15:04")
	until := r.FireAt.Sub(now).Round(time.Second)
	if until <= 0 {
		return fmt.Sprintf("%s  %s  %s", when, r.Message, f.failed.Sprint("(overdue)"))
	}
	return fmt.Sprintf("%s  %s  %s", when, r.Message, f.dim.Sprintf("(in %s)", until))
}

func (f *Formatter) kindColor(kind eventlog.Kind) *color.Color {
	switch kind {
	case eventlog.KindTaskDone:
		return f.done
	case eventlog.KindTaskFailed:
		return f.failed
	case eventlog.KindReminderScheduled, eventlog.KindReminderFired:
		return f.remind
	default:
		return f.dim
	}
}

func (f *Formatter) stateColor(state task.State) *color.Color {
	switch state {
	case task.StateDone:
		return f.done
	case task.StateFailed:
		return f.failed
	default:
		return f.pending
	}
}
