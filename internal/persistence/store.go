//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks
package persistence

import (
	"context"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

// ConversationStore persists the cached view of conversations
type ConversationStore interface {
	SaveConversation(ctx context.Context, conv domain.Conversation) error
}

// CallRecordStore mirrors call sessions for history and analytics
type CallRecordStore interface {
	SaveCall(ctx context.Context, call domain.CallSession) error
}

// Store is everything the writer needs from the collaborator store
type Store interface {
	ConversationStore
	CallRecordStore
}
