package history

import "context"

// NoopStore discards writes and returns empty reads. It is used when
// history is disabled.
type NoopStore struct{}

func (s *NoopStore) Append(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = NewID()
	}
	return nil
}

func (s *NoopStore) List(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	return nil, nil
}

func (s *NoopStore) Clear(ctx context.Context, conversationID string) error {
	return nil
}

func (s *NoopStore) Conversations(ctx context.Context, limit int) ([]ConversationSummary, error) {
	return nil, nil
}

func (s *NoopStore) Close() error {
	return nil
}
