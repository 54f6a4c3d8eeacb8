package report

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Severity levels for validation messages.
type Severity string

const (
	Fatal   Severity = "FATAL"
	Error   Severity = "ERROR"
	Warning Severity = "WARNING"
	Info    Severity = "INFO"
)

func (s Severity) level() slog.Level {
	switch s {
	case Fatal, Error:
		return slog.LevelError
	case Warning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Message represents a single validation finding.
type Message struct {
	Severity Severity          `json:"severity"`
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Location string            `json:"location,omitempty"`
	Context  map[string]string `json:"context,omitempty"`
}

func (m Message) String() string {
	if m.Location != "" {
		return fmt.Sprintf("%s(%s): %s [%s]", m.Severity, m.Code, m.Message, m.Location)
	}
	return fmt.Sprintf("%s(%s): %s", m.Severity, m.Code, m.Message)
}

// Report collects all messages from a validation run. It is safe for
// concurrent use.
type Report struct {
	mu       sync.Mutex
	Messages []Message `json:"messages"`

	logger *slog.Logger
}

// Option configures a Report.
type Option func(*Report)

// WithLogger mirrors every message added to the report to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Report) {
		r.logger = logger
	}
}

// NewReport creates an empty report.
func NewReport(opts ...Option) *Report {
	r := &Report{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends a message to the report.
func (r *Report) Add(sev Severity, code string, msg string) {
	r.append(Message{Severity: sev, Code: code, Message: msg})
}

// AddWithLocation appends a message with a location to the report.
func (r *Report) AddWithLocation(sev Severity, code string, msg string, location string) {
	r.append(Message{Severity: sev, Code: code, Message: msg, Location: location})
}

// Log appends a message built from a template. args are alternating keys
// and values, as in log/slog; each {key} in template is replaced by its
// value and the pairs are kept as the message context.
func (r *Report) Log(sev Severity, code, location, template string, args ...any) {
	m := Message{Severity: sev, Code: code, Location: location}
	if len(args) > 0 {
		m.Context = make(map[string]string, len(args)/2)
		var pairs []string
		for i := 0; i+1 < len(args); i += 2 {
			key := fmt.Sprint(args[i])
			val := fmt.Sprint(args[i+1])
			m.Context[key] = val
			pairs = append(pairs, "{"+key+"}", val)
		}
		template = strings.NewReplacer(pairs...).Replace(template)
	}
	m.Message = template
	r.append(m)
}

// Fatal logs a FATAL message.
func (r *Report) Fatal(code, location, template string, args ...any) {
	r.Log(Fatal, code, location, template, args...)
}

// Error logs an ERROR message.
func (r *Report) Error(code, location, template string, args ...any) {
	r.Log(Error, code, location, template, args...)
}

// Warn logs a WARNING message.
func (r *Report) Warn(code, location, template string, args ...any) {
	r.Log(Warning, code, location, template, args...)
}

// Info logs an INFO message.
func (r *Report) Info(code, location, template string, args ...any) {
	r.Log(Info, code, location, template, args...)
}

func (r *Report) append(m Message) {
	r.mu.Lock()
	r.Messages = append(r.Messages, m)
	logger := r.logger
	r.mu.Unlock()

	if logger == nil {
		return
	}
	attrs := []slog.Attr{slog.String("code", m.Code)}
	if m.Location != "" {
		attrs = append(attrs, slog.String("location", m.Location))
	}
	keys := make([]string, 0, len(m.Context))
	for k := range m.Context {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, m.Context[k]))
	}
	logger.LogAttrs(context.Background(), m.Severity.level(), m.Message, attrs...)
}

// Snapshot returns a copy of the messages collected so far.
func (r *Report) Snapshot() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.Messages)
}

// ByCode returns the messages with the given code.
func (r *Report) ByCode(code string) []Message {
	var out []Message
	for _, m := range r.Snapshot() {
		if m.Code == code {
			out = append(out, m)
		}
	}
	return out
}

func (r *Report) count(sev Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.Messages {
		if m.Severity == sev {
			n++
		}
	}
	return n
}

// FatalCount returns the number of FATAL messages.
func (r *Report) FatalCount() int { return r.count(Fatal) }

// ErrorCount returns the number of ERROR messages.
func (r *Report) ErrorCount() int { return r.count(Error) }

// WarningCount returns the number of WARNING messages.
func (r *Report) WarningCount() int { return r.count(Warning) }

// IsValid returns true if there are no FATAL or ERROR messages.
func (r *Report) IsValid() bool {
	return r.FatalCount() == 0 && r.ErrorCount() == 0
}

// DowngradeToInfo changes the severity of WARNING and ERROR messages whose
// code is in the given set to INFO.
func (r *Report) DowngradeToInfo(codes map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.Messages {
		sev := r.Messages[i].Severity
		if (sev == Warning || sev == Error) && codes[r.Messages[i].Code] {
			r.Messages[i].Severity = Info
		}
	}
}
