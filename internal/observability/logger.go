package observability

import (
	"github.com/danmuck/logwire/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the process logger, applies level when it parses,
// and tags the result with app. Call it after any .env file is loaded so the
// LOGWIRE_LOG_* overrides are visible.
func InitLogger(app, level string) zerolog.Logger {
	logging.ConfigureRuntime()
	logging.SetLevel(level)
	logger := log.Logger.With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
