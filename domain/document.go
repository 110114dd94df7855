package domain

import (
	"fmt"
	"time"
)

// TimeLayout is the serialized form of created_at in the store.
const TimeLayout = time.RFC3339Nano

// naive layouts cover timestamps written without an offset; they are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// TaskDocument is the raw persisted form of a task. CreatedAt normally holds the
// serialized string; a structured time.Time is accepted as well.
type TaskDocument struct {
	ID        string
	Text      string
	Completed bool
	Order     int
	CreatedAt any
}

// NewTaskDocument converts a task to its stored form.
func NewTaskDocument(t Task) TaskDocument {
	return TaskDocument{
		ID:        t.ID,
		Text:      t.Text,
		Completed: t.Completed,
		Order:     t.Order,
		CreatedAt: FormatTime(t.CreatedAt),
	}
}

// Task rehydrates the document, parsing the stored timestamp.
func (d TaskDocument) Task() (Task, error) {
	created, err := ParseCreatedAt(d.CreatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("task %s: %w", d.ID, err)
	}
	return Task{
		ID:        d.ID,
		Text:      d.Text,
		Completed: d.Completed,
		Order:     d.Order,
		CreatedAt: created,
	}, nil
}

// FormatTime serializes a timestamp for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseCreatedAt accepts a serialized or already structured timestamp.
func ParseCreatedAt(v any) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return ts, nil
	case *time.Time:
		if ts == nil {
			return time.Time{}, nil
		}
		return *ts, nil
	case nil:
		return time.Time{}, nil
	case string:
		if ts == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t, nil
		}
		for _, layout := range naiveLayouts {
			if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid created_at %q", ts)
	default:
		return time.Time{}, fmt.Errorf("unsupported created_at type %T", v)
	}
}
