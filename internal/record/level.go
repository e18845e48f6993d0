package record

import "strconv"

// Well-known severities. Level is application defined; these follow the
// usual trace..critical ladder so hosts can map them onto logger levels.
const (
	LevelTrace       int32 = 0
	LevelDebug       int32 = 1
	LevelInformation int32 = 2
	LevelWarning     int32 = 3
	LevelError       int32 = 4
	LevelCritical    int32 = 5
	LevelNone        int32 = 6
)

var levelNames = map[int32]string{
	LevelTrace:       "trace",
	LevelDebug:       "debug",
	LevelInformation: "info",
	LevelWarning:     "warn",
	LevelError:       "error",
	LevelCritical:    "critical",
	LevelNone:        "none",
}

// LevelName returns the short name for a well-known level or the number.
func LevelName(level int32) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return strconv.FormatInt(int64(level), 10)
}
