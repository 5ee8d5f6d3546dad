package ndjson

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// MaxRecordSize is the maximum NDJSON record size (256 KiB)
const MaxRecordSize = 256 * 1024

// Encoder writes NDJSON records to an output stream
type Encoder struct {
	writer *bufio.Writer
	logger *slog.Logger
}

// NewEncoder creates a new NDJSON encoder
func NewEncoder(w io.Writer, logger *slog.Logger) *Encoder {
	return &Encoder{
		writer: bufio.NewWriter(w),
		logger: logger,
	}
}

// Encode writes a record as a single JSON line
func (e *Encoder) Encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	// Check size limit
	if len(data) > MaxRecordSize {
		e.logger.Error("record exceeds size limit",
			"size", len(data),
			"limit", MaxRecordSize,
			"overflow", len(data)-MaxRecordSize)
		return fmt.Errorf("record size %d exceeds limit %d", len(data), MaxRecordSize)
	}

	// Write JSON + newline
	if _, err := e.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := e.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	// Flush immediately so a crash loses at most the current record
	if err := e.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	return nil
}

// Decoder reads NDJSON records from an input stream
type Decoder struct {
	scanner *bufio.Scanner
	logger  *slog.Logger
	lineNum int
}

// NewDecoder creates a new NDJSON decoder
func NewDecoder(r io.Reader, logger *slog.Logger) *Decoder {
	scanner := bufio.NewScanner(r)

	// Set custom buffer with max size enforcement
	buf := make([]byte, MaxRecordSize)
	scanner.Buffer(buf, MaxRecordSize)

	return &Decoder{
		scanner: scanner,
		logger:  logger,
		lineNum: 0,
	}
}

// Decode reads the next NDJSON record into v. Returns io.EOF at end of input.
func (d *Decoder) Decode(v any) error {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return fmt.Errorf("scanner error at line %d: %w", d.lineNum, err)
		}
		return io.EOF
	}

	d.lineNum++
	data := d.scanner.Bytes()

	// Skip empty lines
	if len(data) == 0 {
		return d.Decode(v)
	}

	if err := json.Unmarshal(data, v); err != nil {
		d.logger.Error("failed to unmarshal JSON",
			"line", d.lineNum,
			"error", err)
		return fmt.Errorf("failed to unmarshal line %d: %w", d.lineNum, err)
	}

	return nil
}
