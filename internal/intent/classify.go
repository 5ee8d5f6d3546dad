package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iambrandonn/mailbot/internal/llm"
)

// Classification is the structured extraction payload returned by the
// classifier. ReminderTime/ReminderMessage are populated for reminder
// intents; Fields carries anything else the backend extracted.
type Classification struct {
	Intent          Intent         `json:"intent"`
	Summary         string         `json:"summary,omitempty"`
	ReminderTime    string         `json:"reminder_time,omitempty"`
	ReminderMessage string         `json:"reminder_message,omitempty"`
	Fields          map[string]any `json:"fields,omitempty"`
}

// ClassifyError signals that the external call errored, timed out, or
// returned output that does not validate. The caller decides retry-vs-fail;
// a task must never silently default to an arbitrary handler.
type ClassifyError struct {
	Reason string
	Err    error
}

func (e *ClassifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("classification failed (%s)", e.Reason)
}

func (e *ClassifyError) Unwrap() error { return e.Err }

// Classifier resolves free-text subject/body into a Classification via the
// generation backend. Each call runs under the configured timeout so a stuck
// backend cannot stall the polling loop.
type Classifier struct {
	gen     llm.Generator
	timeout time.Duration
	loc     *time.Location
	logger  *slog.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewClassifier creates a classifier. loc is the timezone used to resolve
// relative times like "tomorrow" in the prompt.
func NewClassifier(gen llm.Generator, timeout time.Duration, loc *time.Location, logger *slog.Logger) *Classifier {
	if loc == nil {
		loc = time.Local
	}
	return &Classifier{
		gen:     gen,
		timeout: timeout,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// Classify maps subject+body to an intent label plus extracted fields.
// Unrecognized labels collapse to IntentUnknown; an empty or missing label
// is a schema violation and returns a *ClassifyError.
func (c *Classifier) Classify(ctx context.Context, subject, body string) (*Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.gen.Generate(ctx, c.buildPrompt(subject, body))
	if err != nil {
		return nil, &ClassifyError{Reason: "generation call", Err: err}
	}

	cls, err := decodeClassification(raw)
	if err != nil {
		return nil, &ClassifyError{Reason: "invalid output", Err: err}
	}

	label := string(cls.Intent)
	parsed, recognized := Parse(label)
	if !recognized && parsed == IntentUnknown && label != string(IntentUnknown) {
		c.logger.Warn("unrecognized intent label from backend", "label", label)
	}
	cls.Intent = parsed

	c.logger.Debug("classified task",
		"intent", cls.Intent,
		"summary", cls.Summary)

	return cls, nil
}

func (c *Classifier) buildPrompt(subject, body string) string {
	var sb strings.Builder
	sb.WriteString("Classify this email request. Return JSON with intent and any extracted data.\n\n")
	fmt.Fprintf(&sb, "SUBJECT: %s\n", subject)
	fmt.Fprintf(&sb, "BODY: %s\n\n", body)
	fmt.Fprintf(&sb, "CURRENT DATE/TIME: %s (timezone: %s)\n",
		c.now().In(c.loc).Format("2006-01-02 15:04"), c.loc.String())
	sb.WriteString("Use this to resolve relative times like \"tomorrow\", \"next friday\".\n\n")
	sb.WriteString("AVAILABLE INTENTS:\n")
	for _, i := range []Intent{IntentSchedule, IntentResearch, IntentCalendarQuery, IntentReminder, IntentStatus, IntentHelp, IntentUnknown} {
		fmt.Fprintf(&sb, "- %q: %s\n", string(i), i.Describe())
	}
	sb.WriteString(`
Return JSON:
{
  "intent": "one of the above",
  "summary": "brief description of what the user wants",
  "reminder_time": "ISO datetime (YYYY-MM-DDTHH:MM:SS) if reminder, else null",
  "reminder_message": "reminder text if reminder, else null"
}`)
	return sb.String()
}

// decodeClassification parses the backend's output; llm.DecodeJSON tolerates
// code fences and near-JSON before this validates the schema.
func decodeClassification(raw string) (*Classification, error) {
	var cls Classification
	if err := llm.DecodeJSON(raw, &cls); err != nil {
		return nil, err
	}

	if cls.Intent == "" {
		return nil, fmt.Errorf("output missing intent field")
	}
	return &cls, nil
}
