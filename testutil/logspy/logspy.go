// Package logspy provides a recording circulation.Logger for tests that
// assert on logging behavior.
package logspy

import (
	"strings"
	"sync"
)

// Record is one captured log call.
type Record struct {
	Level   string
	Message string
	Args    []any
}

// LoggerSpy captures log calls per level. It is safe for concurrent use.
type LoggerSpy struct {
	mu      sync.Mutex
	records []Record
}

// NewLoggerSpy creates a new LoggerSpy instance.
func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{}
}

func (s *LoggerSpy) Debug(msg string, args ...any) { s.record("debug", msg, args) }
func (s *LoggerSpy) Info(msg string, args ...any)  { s.record("info", msg, args) }
func (s *LoggerSpy) Warn(msg string, args ...any)  { s.record("warn", msg, args) }
func (s *LoggerSpy) Error(msg string, args ...any) { s.record("error", msg, args) }

func (s *LoggerSpy) record(level string, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, Record{Level: level, Message: msg, Args: args})
}

// Records returns a copy of all captured log calls in order.
func (s *LoggerSpy) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Record(nil), s.records...)
}

// CountByLevel returns the number of captured calls at the given level.
func (s *LoggerSpy) CountByLevel(level string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0

	for _, r := range s.records {
		if r.Level == level {
			count++
		}
	}

	return count
}

// HasMessageContaining reports whether any captured message at the given
// level contains the substring.
func (s *LoggerSpy) HasMessageContaining(level string, substring string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.Level == level && strings.Contains(r.Message, substring) {
			return true
		}
	}

	return false
}

// Reset clears all captured log calls.
func (s *LoggerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
}
