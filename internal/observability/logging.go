package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/medremind-core/internal/sysutil"
)

// SetupLogging configures the zerolog global logger: level from level,
// human-readable console output when pretty is set, JSON otherwise. A nil
// out writes to stderr. The configured logger is also installed as the
// default context logger, so log.Ctx works before any request scope exists.
func SetupLogging(level string, pretty bool, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	sysutil.SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}
	l := zerolog.New(out).With().Timestamp().Str("service", serviceNamespace).Logger()

	log.Logger = l
	zerolog.DefaultContextLogger = &log.Logger
	return l
}
