// This file implements RedactingLogger, the access log. Request and response
// bodies are never logged. The secrets this API handles are the PIN, the
// reset code, the session cookie and the recovery email, so:
//
//   - headers carrying them (X-PIN, X-Reset-Code, Cookie, Set-Cookie,
//     Authorization, plus RedactOptions.MaskHeaders) are replaced wholesale
//   - query parameters named pin, code or email (plus MaskParams) are
//     replaced wholesale; other values only have email addresses scrubbed
//
// Medication and dose ids are kept; they identify nothing outside this store.

package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const redacted = "[REDACTED]"

var emailRE = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

var (
	defaultMaskHeaders = []string{"authorization", "cookie", "set-cookie", "x-pin", "x-reset-code"}
	defaultMaskParams  = []string{"pin", "code", "email"}
)

// RedactOptions adds names to the built-in mask sets. Matching is
// case-insensitive.
type RedactOptions struct {
	MaskHeaders []string
	MaskParams  []string
}

// RedactingLogger returns a middleware that writes one access line per
// request: route, scrubbed query and headers, status, size and latency.
// 5xx logs at error level, 4xx at warn, everything else at info.
//
// When RequestLogger ran first the line goes through the request-scoped
// logger; otherwise the global logger is used and request_id is taken from
// the response or request header.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := lowerSet(defaultMaskHeaders, opts.MaskHeaders)
	maskParams := lowerSet(defaultMaskParams, opts.MaskParams)

	return func(c *gin.Context) {
		start := time.Now()
		query := scrubQuery(c.Request.URL.RawQuery, maskParams)
		headers := scrubHeaders(c.Request.Header, maskHeaders)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		lg := &log.Logger
		_, scoped := c.Get(loggerKey)
		if scoped {
			lg = LoggerFrom(c)
		}

		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = lg.Error()
		case status >= 400:
			ev = lg.Warn()
		default:
			ev = lg.Info()
		}
		if !scoped {
			rid := c.Writer.Header().Get(requestIDHeader)
			if rid == "" {
				rid = c.GetHeader(requestIDHeader)
			}
			ev = ev.Str("request_id", rid).Str("method", c.Request.Method)
		}

		ev.
			Str("route", route).
			Str("query", truncate(query, maxQueryLogLength)).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}

// scrubQuery masks the listed parameters and scrubs emails from the rest.
// The result is re-encoded with keys sorted. Malformed queries are dropped.
func scrubQuery(raw string, mask map[string]struct{}) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return "[unparseable]"
	}
	for k, vv := range vals {
		_, hide := mask[strings.ToLower(k)]
		for i, v := range vv {
			if hide {
				vv[i] = redacted
				continue
			}
			vv[i] = emailRE.ReplaceAllString(v, "[REDACTED:email]")
		}
	}
	return vals.Encode()
}

func scrubHeaders(h map[string][]string, mask map[string]struct{}) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := mask[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = emailRE.ReplaceAllString(strings.Join(vv, ", "), "[REDACTED:email]")
	}
	return out
}

func lowerSet(lists ...[]string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, l := range lists {
		for _, s := range l {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				set[s] = struct{}{}
			}
		}
	}
	return set
}
