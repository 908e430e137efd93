package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/seenimoa/marketlens/pkg/models"
)

// SchemaError reports a snapshot body that does not have the expected shape.
type SchemaError struct {
	Snapshot string // "news", "sentiment", "reports"
	Path     string // e.g. "[3].title"
	Reason   string
	Err      error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("%s snapshot: invalid shape", e.Snapshot)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// DecodeNews validates and decodes a news list body. The body must be a JSON
// array of objects, each with a non-empty title. Missing IDs are derived from
// title and publish time.
func DecodeNews(body []byte) ([]models.NewsRecord, error) {
	if firstByte(body) != '[' {
		return nil, &SchemaError{Snapshot: "news", Reason: "expected a JSON array"}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &SchemaError{Snapshot: "news", Err: err}
	}

	records := make([]models.NewsRecord, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("[%d]", i)
		if firstByte(item) != '{' {
			return nil, &SchemaError{Snapshot: "news", Path: path, Reason: "expected an object"}
		}
		var r models.NewsRecord
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, &SchemaError{Snapshot: "news", Path: path, Err: err}
		}
		r.Title = strings.TrimSpace(r.Title)
		if r.Title == "" {
			return nil, &SchemaError{Snapshot: "news", Path: path + ".title", Reason: "missing title"}
		}
		if r.ID == "" {
			r.ID = RecordID(r.Title, r.PublishTime)
		}
		records = append(records, r)
	}
	return records, nil
}

// RecordID derives a stable ID for a record without one.
func RecordID(title, publishTime string) string {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(title+publishTime)).String()
}

// DecodeSentiment validates and decodes a sentiment body into its raw,
// possibly partial, shape.
func DecodeSentiment(body []byte) (models.RawSentiment, error) {
	var raw models.RawSentiment
	if firstByte(body) != '{' {
		return raw, &SchemaError{Snapshot: "sentiment", Reason: "expected a JSON object"}
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.RawSentiment{}, &SchemaError{Snapshot: "sentiment", Err: err}
	}
	return raw, nil
}

// DecodeReports validates and decodes a reports body.
func DecodeReports(body []byte) (models.ReportsSnapshot, error) {
	var rep models.ReportsSnapshot
	if firstByte(body) != '{' {
		return rep, &SchemaError{Snapshot: "reports", Reason: "expected a JSON object"}
	}
	if err := json.Unmarshal(body, &rep); err != nil {
		return models.ReportsSnapshot{}, &SchemaError{Snapshot: "reports", Err: err}
	}
	return rep, nil
}

func firstByte(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}
