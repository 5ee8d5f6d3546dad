package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeJSON unmarshals model output into v, tolerating the usual LLM
// artifacts: markdown code fences and near-JSON (trailing commas, single
// quotes), which a repair pass fixes before giving up.
func DecodeJSON(raw string, v any) error {
	text := StripCodeFences(raw)

	if err := json.Unmarshal([]byte(text), v); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(text)
		if repairErr != nil {
			return fmt.Errorf("unparseable output: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), v); err != nil {
			return fmt.Errorf("unparseable output after repair: %w", err)
		}
	}
	return nil
}

// StripCodeFences removes markdown ```json fences models wrap JSON in.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "```") {
		s = strings.ReplaceAll(s, "```json", "")
		s = strings.ReplaceAll(s, "```", "")
		s = strings.TrimSpace(s)
	}
	return s
}
