package record

import (
	"fmt"
	"time"
)

// Record is one structured log entry.
type Record struct {
	Message   string
	Category  string
	Level     int32
	Timestamp time.Time
}

// New builds a record stamped with t.
func New(message, category string, level int32, t time.Time) Record {
	return Record{
		Message:   message,
		Category:  category,
		Level:     level,
		Timestamp: t,
	}
}

// Equal reports whether r and o carry the same field values. Timestamps are
// compared by their wire encoding, so precision below one tick is ignored.
func (r Record) Equal(o Record) bool {
	return r.Message == o.Message &&
		r.Category == o.Category &&
		r.Level == o.Level &&
		EncodeTime(r.Timestamp) == EncodeTime(o.Timestamp)
}

func (r Record) String() string {
	return fmt.Sprintf("%s [%s] %s: %s",
		r.Timestamp.Format(time.RFC3339Nano), LevelName(r.Level), r.Category, r.Message)
}
