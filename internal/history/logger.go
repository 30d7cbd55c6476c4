package history

import (
	"context"
	"sync"
)

// WarnFunc is a function that logs warnings.
type WarnFunc func(format string, args ...any)

// LoggingStore wraps a Store and reports write failures through warnFunc,
// once per operation. Callers still receive the error; the chat service
// ignores it so a broken database never fails a turn.
type LoggingStore struct {
	Store
	warnFunc WarnFunc
	mu       sync.Mutex
	warned   map[string]bool
}

// NewLoggingStore creates a new LoggingStore wrapper.
func NewLoggingStore(store Store, warnFunc WarnFunc) *LoggingStore {
	return &LoggingStore{
		Store:    store,
		warnFunc: warnFunc,
		warned:   make(map[string]bool),
	}
}

func (s *LoggingStore) logOnce(op string, err error) {
	if err == nil || s.warnFunc == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.warned[op] {
		return
	}
	s.warned[op] = true
	s.warnFunc("history %s failed: %v", op, err)
}

// Append wraps Store.Append with error logging.
func (s *LoggingStore) Append(ctx context.Context, msg *Message) error {
	err := s.Store.Append(ctx, msg)
	s.logOnce("Append", err)
	return err
}

// List wraps Store.List with error logging.
func (s *LoggingStore) List(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	msgs, err := s.Store.List(ctx, conversationID, limit)
	s.logOnce("List", err)
	return msgs, err
}

// Clear wraps Store.Clear with error logging.
func (s *LoggingStore) Clear(ctx context.Context, conversationID string) error {
	err := s.Store.Clear(ctx, conversationID)
	s.logOnce("Clear", err)
	return err
}
