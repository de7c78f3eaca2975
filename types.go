package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-logger/glog"
)

// Logger is the structured logger contract shared by every package in the module.
type Logger = glog.Logger

// LoggerProvider hands out named loggers.
type LoggerProvider = glog.LoggerProvider

// ClaimSource exposes named claims of an authenticated principal.
type ClaimSource interface {
	Claim(name string) (string, bool)
}

// AuthClaims represents the validated claims of a bearer token
type AuthClaims interface {
	ClaimSource
	Subject() string
	UserID() string
	Issuer() string
	Expires() time.Time
	IssuedAt() time.Time
}

// ResolveLogger returns a provider and a logger scoped to name. A provider that
// yields a nil logger falls back to the given logger, then to the default one.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if provider != nil {
		if scoped := provider.GetLogger(name); scoped != nil {
			return provider, scoped
		}
	}

	if logger == nil {
		logger = defaultLogger()
	}

	return glog.ProviderFromLogger(logger), logger
}

func defaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Trace(msg string, args ...any) { d.print("TRC", msg, args...) }
func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args...) }
func (d defLogger) Fatal(msg string, args ...any) { d.print("FTL", msg, args...) }

func (d defLogger) WithContext(context.Context) Logger {
	return d
}

func (d defLogger) print(level, msg string, args ...any) {
	line := fmt.Sprintf("[%s] PORTAL %s", level, msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			line += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		} else {
			line += fmt.Sprintf(" %v", args[i])
		}
	}
	fmt.Println(line)
}
