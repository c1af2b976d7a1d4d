//go:generate go run go.uber.org/mock/mockgen -source=relay_service.go -destination=../mocks/mock_relay_service.go -package=mocks
package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/presence"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type IRelayService interface {
	Connected(ctx context.Context, userID string, sink contract.EventSink)
	Disconnected(ctx context.Context, userID string, sink contract.EventSink)
	Send(ctx context.Context, origin contract.EventSink, senderID, receiverID, content string)
	MarkRead(ctx context.Context, origin contract.EventSink, readerID, conversationID, counterpartID string)
	Typing(ctx context.Context, senderID, receiverID string, start bool)
}

// RelayService routes messages between the two participants of a pair and
// advances their delivery lifecycle. It is the only component that writes
// message or conversation state.
//
// Failure policy is best-effort throughout: validation and persistence
// failures drop the operation after logging, and the initiating connection
// observes the absence of an effect rather than an error event.
type RelayService struct {
	log           *slog.Logger
	registry      presence.IRegistry
	users         repositories.IUserRepository
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	censor        *moderation.Censor
}

func NewRelayService(
	log *slog.Logger,
	registry presence.IRegistry,
	users repositories.IUserRepository,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	censor *moderation.Censor,
) *RelayService {
	return &RelayService{
		log:           log,
		registry:      registry,
		users:         users,
		conversations: conversations,
		messages:      messages,
		censor:        censor,
	}
}

// Connected registers a live connection. The first connection of a user
// broadcasts presence:update{online:true} to everyone and persists the
// online flag best-effort.
func (s *RelayService) Connected(ctx context.Context, userID string, sink contract.EventSink) {
	if s.registry.Register(userID, sink) {
		s.registry.Broadcast(ctx, event.PresenceUpdate{UserID: userID, Online: true})
		if err := s.users.SetOnline(userID, true); err != nil {
			s.log.Warn("failed to persist online flag", "user_id", userID, "error", err)
		}
	}
}

// Disconnected is the symmetric path: the last connection going away
// broadcasts presence:update{online:false}.
func (s *RelayService) Disconnected(ctx context.Context, userID string, sink contract.EventSink) {
	if s.registry.Deregister(userID, sink) {
		s.registry.Broadcast(ctx, event.PresenceUpdate{UserID: userID, Online: false})
		if err := s.users.SetOnline(userID, false); err != nil {
			s.log.Warn("failed to persist offline flag", "user_id", userID, "error", err)
		}
	}
}

// Send runs the send protocol:
// find-or-create the conversation for the pair, persist the message as
// "sent", echo it to the originating connection, and when the receiver is
// online deliver it, advance to "delivered" and emit receipts to both sides.
// An offline receiver leaves the message at "sent" with no delivered event.
func (s *RelayService) Send(ctx context.Context, origin contract.EventSink, senderID, receiverID, content string) {
	if senderID == "" || receiverID == "" || content == "" {
		s.log.Debug("dropping send with missing fields", "sender", senderID, "receiver", receiverID)
		return
	}

	conversation, err := s.conversations.FindOrCreate(senderID, receiverID)
	if err != nil {
		s.log.Error("find-or-create conversation failed", "sender", senderID, "receiver", receiverID, "error", err)
		return
	}

	message := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		Sender:         senderID,
		Receiver:       receiverID,
		Content:        s.censor.Apply(content),
		Status:         domain.StatusSent,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Append(message); err != nil {
		s.log.Error("failed to persist message", "message_id", message.ID, "error", err)
		return
	}
	if err := s.conversations.Touch(conversation.ID, message.ID, message.CreatedAt); err != nil {
		s.log.Error("failed to touch conversation", "conversation_id", conversation.ID, "error", err)
	}

	// Echo to the sender unconditionally so its UI reflects the message
	// without a separate local append.
	s.emit(ctx, origin, event.MessageNew{Message: message})

	receiverSink, online := s.registry.AnyConnection(receiverID)
	if !online {
		return
	}
	s.emit(ctx, receiverSink, event.MessageNew{Message: message})

	updated, changed, err := s.messages.UpdateStatus(message.ID, domain.StatusDelivered)
	if err != nil {
		s.log.Error("failed to mark delivered", "message_id", message.ID, "error", err)
		return
	}
	if !changed {
		return
	}
	delivered := event.MessageDelivered{MessageID: updated.ID}
	s.emit(ctx, origin, delivered)
	s.emit(ctx, receiverSink, delivered)
}

// MarkRead runs the read-receipt protocol: one bulk transition of every
// pending message from counterpartID to readerID, an acknowledgment with the
// changed count to the reader, and a countless notification to the
// counterpart when it has a live connection.
func (s *RelayService) MarkRead(ctx context.Context, origin contract.EventSink, readerID, conversationID, counterpartID string) {
	if readerID == "" || conversationID == "" {
		s.log.Debug("dropping read with missing fields", "reader", readerID, "conversation", conversationID)
		return
	}

	count, err := s.messages.MarkRead(conversationID, readerID, counterpartID)
	if err != nil {
		s.log.Error("bulk read transition failed", "conversation_id", conversationID, "error", err)
		return
	}

	s.emit(ctx, origin, event.MessageRead{ConversationID: conversationID, Count: &count})

	if counterpartSink, online := s.registry.AnyConnection(counterpartID); online {
		s.emit(ctx, counterpartSink, event.MessageRead{ConversationID: conversationID})
	}
}

// Typing relays a typing indicator one hop to one live connection of the
// target. No persistence, no queuing: an offline target drops the event.
func (s *RelayService) Typing(ctx context.Context, senderID, receiverID string, start bool) {
	sink, online := s.registry.AnyConnection(receiverID)
	if !online {
		return
	}
	s.emit(ctx, sink, event.Typing{From: senderID, Start: start})
}

func (s *RelayService) emit(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	if err := sink.Consume(ctx, e); err != nil {
		s.log.Debug("event delivery dropped", "event", e.EventName(), "error", err)
	}
}
