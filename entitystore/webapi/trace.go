package webapi

import (
	"strings"

	"github.com/goliatone/go-portal-auth"
)

// TraceLevel filters the client trace forwarded to the logger.
type TraceLevel int

const (
	TraceOff TraceLevel = iota
	TraceCritical
	TraceError
	TraceWarning
	TraceInformation
	TraceVerbose
	TraceAll
)

var traceLevels = map[string]TraceLevel{
	"off":             TraceOff,
	"critical":        TraceCritical,
	"error":           TraceError,
	"warning":         TraceWarning,
	"information":     TraceInformation,
	"verbose":         TraceVerbose,
	"all":             TraceAll,
	"activitytracing": TraceVerbose,
}

// ParseTraceLevel maps a level name (Off, Critical, Error, Warning,
// Information, Verbose, All) to a TraceLevel. An empty name means Off.
func ParseTraceLevel(name string) (TraceLevel, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return TraceOff, nil
	}
	level, ok := traceLevels[name]
	if !ok {
		return TraceOff, auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{
			"reason": "unknown trace level",
			"level":  name,
		})
	}
	return level, nil
}

func (l TraceLevel) String() string {
	for name, level := range traceLevels {
		if level == l && name != "activitytracing" {
			return name
		}
	}
	return "off"
}

// tracer forwards client events to the application logger.
type tracer struct {
	level  TraceLevel
	logger auth.Logger
}

func (t tracer) enabled(level TraceLevel) bool {
	return t.logger != nil && t.level != TraceOff && level <= t.level
}

func (t tracer) verbose(msg string, args ...any) {
	if t.enabled(TraceVerbose) {
		t.logger.Debug(msg, args...)
	}
}

func (t tracer) info(msg string, args ...any) {
	if t.enabled(TraceInformation) {
		t.logger.Info(msg, args...)
	}
}

func (t tracer) warn(msg string, args ...any) {
	if t.enabled(TraceWarning) {
		t.logger.Warn(msg, args...)
	}
}

func (t tracer) failure(msg string, args ...any) {
	if t.enabled(TraceError) {
		t.logger.Error(msg, args...)
	}
}
