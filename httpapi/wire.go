package httpapi

import (
	"chat-relay/domain"
	"chat-relay/services"
	"time"

	"github.com/samber/lo"
)

// Wire DTOs. Field names follow the original client contract, so the mobile
// app keeps working against this server unchanged.

type userPayload struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Number    string    `json:"number"`
	Status    string    `json:"status"`
	Online    bool      `json:"online"`
	CreatedAt time.Time `json:"createdAt"`
}

type messagePayload struct {
	ID             string    `json:"_id"`
	ConversationID string    `json:"conversation"`
	Sender         string    `json:"sender"`
	Receiver       string    `json:"receiver"`
	Content        string    `json:"content"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

type participantPayload struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

type conversationPayload struct {
	ID                string               `json:"_id"`
	Participants      []participantPayload `json:"participants"`
	LastMessage       *messagePayload      `json:"lastMessage"`
	UpdatedAt         time.Time            `json:"updatedAt"`
	UnreadCount       int                  `json:"unreadCount"`
	LastUnreadMessage *messagePayload      `json:"lastUnreadMessage"`
}

func toUserPayload(user domain.User) userPayload {
	return userPayload{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Number:    user.Number,
		Status:    user.StatusLine,
		Online:    user.Online,
		CreatedAt: user.CreatedAt,
	}
}

func toMessagePayload(message domain.Message) messagePayload {
	return messagePayload{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		Sender:         message.Sender,
		Receiver:       message.Receiver,
		Content:        message.Content,
		Status:         string(message.Status),
		CreatedAt:      message.CreatedAt,
	}
}

func toMessagePayloadPtr(message *domain.Message) *messagePayload {
	if message == nil {
		return nil
	}
	return lo.ToPtr(toMessagePayload(*message))
}

func toConversationPayload(summary services.ConversationSummary) conversationPayload {
	return conversationPayload{
		ID: summary.Conversation.ID,
		Participants: lo.Map(summary.Participants, func(user domain.User, _ int) participantPayload {
			return participantPayload{
				ID:     user.ID,
				Name:   user.Name,
				Email:  user.Email,
				Status: user.StatusLine,
			}
		}),
		LastMessage:       toMessagePayloadPtr(summary.LastMessage),
		UpdatedAt:         summary.Conversation.UpdatedAt,
		UnreadCount:       summary.UnreadCount,
		LastUnreadMessage: toMessagePayloadPtr(summary.LastUnreadMessage),
	}
}
