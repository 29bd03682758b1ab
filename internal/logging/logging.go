// Package logging provides the bracketed-tag log style used throughout this
// repository ("[relay] ...", "[jitter] ...").
package logging

import (
	"log"
	"os"
)

// Logger writes lines prefixed with a fixed component tag.
type Logger struct {
	tag string
	std *log.Logger
}

// New returns a Logger that prefixes every message with "[tag] ".
func New(tag string) *Logger {
	return &Logger{
		tag: tag,
		std: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *Logger) Printf(format string, args ...any) {
	l.std.Printf("["+l.tag+"] "+format, args...)
}

func (l *Logger) Println(args ...any) {
	all := append([]any{"[" + l.tag + "]"}, args...)
	l.std.Println(all...)
}
