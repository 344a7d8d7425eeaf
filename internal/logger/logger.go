package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

const redacted = "[REDACTED]"

var globalLogger *slog.Logger
var isTerminal = term.IsTerminal

// Keys whose values are never logged. Matched as substrings of the
// lower-cased key.
var secretKeys = []string{"password", "secret", "token", "authorization", "cookie", "signature"}

// Query parameters stripped from service URLs. A camera behind a reverse
// proxy may be reached through a signed or token-carrying URL.
var secretParams = []string{"token", "key", "sig", "signature", "auth", "password", "secret"}

var (
	urlPattern    = regexp.MustCompile(`https?://[^\s"'<>]+`)
	secretPattern = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]+=*|\b(access[_-]?token|token|secret|password)\b\s*[:=]\s*\S+`)
)

// RedactURL hides the password and secret query values of a service URL,
// keeping the host and path readable. Anything that is not an http(s) URL
// is returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return raw
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if isSecretParam(k) {
				q.Set(k, "xxxxx")
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func isSecretParam(name string) bool {
	name = strings.ToLower(name)
	for _, p := range secretParams {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// RedactAttr is a slog.ReplaceAttr function. Secret keys are blanked, URLs
// inside values are scrubbed with RedactURL, and values that carry a bearer
// token or key=value secret outside a URL are blanked.
func RedactAttr(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, k := range secretKeys {
		if strings.Contains(key, k) {
			return slog.String(a.Key, redacted)
		}
	}

	var value string
	switch a.Value.Kind() {
	case slog.KindString:
		value = a.Value.String()
	case slog.KindAny:
		value = fmt.Sprint(a.Value.Any())
	default:
		return a
	}

	if secretPattern.MatchString(urlPattern.ReplaceAllString(value, "")) {
		return slog.String(a.Key, redacted)
	}
	if scrubbed := urlPattern.ReplaceAllStringFunc(value, RedactURL); scrubbed != value {
		return slog.String(a.Key, scrubbed)
	}
	return a
}

func init() {
	Init(LevelInfo, nil)
}

// Init installs the global logger: a console handler on stderr, plus a JSON
// handler on logFile when one is given. Console colors are used only on a
// terminal and only when no log file is being written.
func Init(level slog.Level, logFile io.Writer) {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: RedactAttr}
	useColor := logFile == nil && isTerminal(int(os.Stderr.Fd()))

	var handler slog.Handler = NewPrettyHandler(os.Stderr, opts, useColor)
	if logFile != nil {
		handler = &multiHandler{handlers: []slog.Handler{handler, slog.NewJSONHandler(logFile, opts)}}
	}
	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

// ParseLevel maps a config or flag value to a level. Unknown names are an error.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", name)
}

func Debug(msg string, args ...any) { globalLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { globalLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { globalLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { globalLogger.Error(msg, args...) }

// Transition records the timelapse state after a service response was
// applied. A phase change logs at info; progress within the same phase at
// debug. fields are grouped under "run".
func Transition(action, from, to string, seq uint64, fields ...any) {
	level := LevelDebug
	if from != to {
		level = LevelInfo
	}
	globalLogger.Log(context.Background(), level, "Timelapse state",
		"action", action,
		"phase", from+"->"+to,
		"seq", seq,
		slog.Group("run", fields...),
	)
}

// PrettyHandler writes one human-readable line per record:
//
//	12:04:05 INF Timelapse state action=start phase=idle->running run.frames=0
type PrettyHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   *slog.HandlerOptions
	prefix string // rendered WithAttrs output
	groups []string
	color  bool
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyHandler{mu: &sync.Mutex{}, w: w, opts: opts, color: color}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(h.levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, h.groups, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *PrettyHandler) levelTag(l slog.Level) string {
	tag, code := "ERR", "31"
	switch {
	case l < slog.LevelInfo:
		tag, code = "DBG", "90"
	case l < slog.LevelWarn:
		tag, code = "INF", "32"
	case l < slog.LevelError:
		tag, code = "WRN", "33"
	}
	if !h.color {
		return tag
	}
	return "\033[" + code + "m" + tag + "\033[0m"
}

func (h *PrettyHandler) appendAttr(b *strings.Builder, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		if a.Key != "" {
			groups = append(groups[:len(groups):len(groups)], a.Key)
		}
		for _, m := range members {
			h.appendAttr(b, groups, m)
		}
		return
	}
	if h.opts.ReplaceAttr != nil {
		a = h.opts.ReplaceAttr(groups, a)
	}
	if a.Key == "" {
		return
	}

	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	value := a.Value.String()
	if value == "" || strings.ContainsAny(value, " \t\n\"=") {
		value = strconv.Quote(value)
	}
	b.WriteByte(' ')
	if h.color {
		b.WriteString("\033[90m" + key + "=\033[0m")
	} else {
		b.WriteString(key + "=")
	}
	b.WriteString(value)
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	for _, a := range attrs {
		h.appendAttr(&b, h.groups, a)
	}
	h2 := *h
	h2.prefix += b.String()
	return &h2
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(h2.groups[:len(h2.groups):len(h2.groups)], name)
	return &h2
}

// multiHandler fans a record out to every handler that accepts its level.
// A failing handler does not stop the others.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := &multiHandler{handlers: make([]slog.Handler, len(m.handlers))}
	for i, h := range m.handlers {
		out.handlers[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	out := &multiHandler{handlers: make([]slog.Handler, len(m.handlers))}
	for i, h := range m.handlers {
		out.handlers[i] = h.WithGroup(name)
	}
	return out
}
