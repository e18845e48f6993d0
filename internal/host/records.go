package host

import (
	"github.com/danmuck/logwire/internal/record"
	"github.com/rs/zerolog"
)

// Level maps a record level onto the logger ladder. Unknown levels are
// logged without a level.
func Level(level int32) zerolog.Level {
	switch level {
	case record.LevelTrace:
		return zerolog.TraceLevel
	case record.LevelDebug:
		return zerolog.DebugLevel
	case record.LevelInformation:
		return zerolog.InfoLevel
	case record.LevelWarning:
		return zerolog.WarnLevel
	case record.LevelError:
		return zerolog.ErrorLevel
	case record.LevelCritical:
		return zerolog.FatalLevel
	default:
		return zerolog.NoLevel
	}
}

// logRecord writes rec through logger. WithLevel never exits or panics, so
// critical records are safe to log at fatal.
func logRecord(logger zerolog.Logger, rec record.Record) {
	if rec.Level == record.LevelNone {
		return
	}
	logger.WithLevel(Level(rec.Level)).
		Str("category", rec.Category).
		Int32("record_level", rec.Level).
		Time("at", rec.Timestamp).
		Msg(rec.Message)
}
