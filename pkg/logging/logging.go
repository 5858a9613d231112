package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Level controls which messages are written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var (
	mu       sync.RWMutex
	logger   = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	minLevel = LevelInfo
)

// SetLevel changes the minimum level that gets written.
func SetLevel(l Level) {
	mu.Lock()
	minLevel = l
	mu.Unlock()
}

// ParseLevel maps "debug", "info" and "error" to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetOutput redirects the underlying logger, mostly for tests.
func SetOutput(l *log.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

func Debug(msg string, kv ...any) {
	write(LevelDebug, "DEBUG", msg, kv)
}

func Info(msg string, kv ...any) {
	write(LevelInfo, "INFO", msg, kv)
}

// Error logs msg with err prepended to the key/value pairs.
func Error(msg string, err error, kv ...any) {
	write(LevelError, "ERROR", msg, append([]any{"err", err}, kv...))
}

func write(level Level, tag, msg string, kv []any) {
	mu.RLock()
	defer mu.RUnlock()
	if level < minLevel {
		return
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(tag)
	b.WriteString("] ")
	b.WriteString(msg)
	// odd trailing value is dropped
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", key, kv[i+1])
	}
	logger.Println(b.String())
}
