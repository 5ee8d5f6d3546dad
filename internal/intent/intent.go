// Package intent maps free-text commands to a symbolic intent label plus
// extracted structured fields. The language understanding itself is delegated
// to an external text-generation call; the output schema here is the real
// contract surface.
package intent

// Intent is a symbolic label describing what action a task requests.
type Intent string

const (
	// IntentSchedule creates a calendar event.
	IntentSchedule Intent = "schedule"
	// IntentResearch answers a question using the generation backend.
	IntentResearch Intent = "research"
	// IntentCalendarQuery answers a question about the existing calendar.
	IntentCalendarQuery Intent = "calendar_query"
	// IntentReminder sets a one-shot future reminder.
	IntentReminder Intent = "reminder"
	// IntentStatus reports agent health and recent activity.
	IntentStatus Intent = "status"
	// IntentHelp answers questions about the system itself.
	IntentHelp Intent = "help"
	// IntentUnknown is the explicit unrecognized variant. Dispatching it is a
	// typed, permanent failure rather than a stringly-typed lookup miss.
	IntentUnknown Intent = "unknown"
)

// known is the closed set of built-in variants.
var known = map[Intent]string{
	IntentSchedule:      "Create a calendar event (keywords: schedule, appointment, meeting, event)",
	IntentResearch:      "Research a topic (user wants information or research)",
	IntentCalendarQuery: "Question about the existing calendar/schedule (what do I have, when is, am I free)",
	IntentReminder:      "Set a reminder for later (remind me, don't forget, alert me)",
	IntentStatus:        "Check system status (status, health, working)",
	IntentHelp:          "Question about how to use this system (how do I, what can you, help)",
	IntentUnknown:       "Can't determine intent",
}

// Parse maps a raw label to a known variant. Anything outside the known set
// collapses to IntentUnknown; ok reports whether the label was recognized.
func Parse(label string) (i Intent, ok bool) {
	if _, exists := known[Intent(label)]; exists && Intent(label) != IntentUnknown {
		return Intent(label), true
	}
	return IntentUnknown, Intent(label) == IntentUnknown
}

// Known reports whether i is one of the built-in variants (including unknown).
func (i Intent) Known() bool {
	_, exists := known[i]
	return exists
}

// Describe returns the one-line description used in classification prompts.
func (i Intent) Describe() string {
	return known[i]
}
