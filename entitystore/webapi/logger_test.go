package webapi

import (
	"context"
	"sync"

	"github.com/goliatone/go-portal-auth"
)

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg)
}

func (l *captureLogger) Trace(msg string, _ ...any) { l.add("TRC", msg) }
func (l *captureLogger) Debug(msg string, _ ...any) { l.add("DBG", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.add("INF", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.add("WRN", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.add("ERR", msg) }
func (l *captureLogger) Fatal(msg string, _ ...any) { l.add("FTL", msg) }

func (l *captureLogger) WithContext(context.Context) auth.Logger { return l }
