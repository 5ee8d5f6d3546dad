package eventlog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"log/slog"

	"github.com/iambrandonn/mailbot/internal/ndjson"
)

// ReadRecent returns the last n records in the log, oldest first.
// A missing log file yields an empty slice: nothing has happened yet.
func ReadRecent(logPath string, n int, logger *slog.Logger) ([]Record, error) {
	file, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer file.Close()

	var records []Record
	dec := ndjson.NewDecoder(file, logger)
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// A torn trailing line after a crash is not fatal; keep what parsed.
			logger.Warn("skipping unreadable audit record", "error", err)
			break
		}
		records = append(records, rec)
	}

	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}
