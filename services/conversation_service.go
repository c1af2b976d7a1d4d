//go:generate go run go.uber.org/mock/mockgen -source=conversation_service.go -destination=../mocks/mock_conversation_service.go -package=mocks
package services

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"sort"

	"github.com/samber/lo"
)

type IConversationService interface {
	ListForUser(userID string) ([]ConversationSummary, error)
	FindOrCreateWith(userID, otherID string) (domain.Conversation, error)
	History(userID, conversationID string) ([]domain.Message, error)
}

// ConversationSummary is one entry of the conversation list: the
// conversation, its participants, and the unread aggregates for the querying
// user.
type ConversationSummary struct {
	Conversation      domain.Conversation
	Participants      []domain.User
	LastMessage       *domain.Message
	UnreadCount       int
	LastUnreadMessage *domain.Message
}

// ConversationService is the read-side projection over the store. It
// performs no writes besides the find-or-create required by the explicit
// "open conversation with user" request.
type ConversationService struct {
	users         repositories.IUserRepository
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
}

func NewConversationService(
	users repositories.IUserRepository,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
) *ConversationService {
	return &ConversationService{users: users, conversations: conversations, messages: messages}
}

// ListForUser returns the user's conversations newest-activity first, each
// annotated with last message, unread count and, when unread > 0, the most
// recent unread message.
func (s *ConversationService) ListForUser(userID string) ([]ConversationSummary, error) {
	conversations, err := s.conversations.ListForUser(userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summary := ConversationSummary{Conversation: conversation}

		for _, participantID := range []string{conversation.ParticipantA, conversation.ParticipantB} {
			user, err := s.users.GetUserByID(participantID)
			if err != nil {
				continue
			}
			user.PasswordHash = ""
			summary.Participants = append(summary.Participants, user)
		}

		if conversation.LastMessageID != "" {
			if last, err := s.messages.Get(conversation.LastMessageID); err == nil {
				summary.LastMessage = &last
			}
		}

		pending, err := s.messages.PendingFor(conversation.ID, userID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = len(pending)
		if len(pending) > 0 {
			// PendingFor is chronological, so the newest unread is last.
			summary.LastUnreadMessage = lo.ToPtr(pending[len(pending)-1])
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// FindOrCreateWith backs the explicit "open conversation with user" request.
func (s *ConversationService) FindOrCreateWith(userID, otherID string) (domain.Conversation, error) {
	if userID == "" || otherID == "" {
		return domain.Conversation{}, errors.ErrMissingFields
	}
	return s.conversations.FindOrCreate(userID, otherID)
}

// History returns a conversation's messages oldest first. Only the two
// participants may read it.
func (s *ConversationService) History(userID, conversationID string) ([]domain.Message, error) {
	conversation, err := s.conversations.Get(conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.Includes(userID) {
		return nil, errors.ErrNotParticipant
	}
	return s.messages.ListByConversation(conversationID)
}
