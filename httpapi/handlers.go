package httpapi

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"chat-relay/services"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type Handlers struct {
	log           *slog.Logger
	authService   services.IAuthService
	conversations services.IConversationService
	users         repositories.IUserRepository
}

func NewHandlers(
	log *slog.Logger,
	authService services.IAuthService,
	conversations services.IConversationService,
	users repositories.IUserRepository,
) *Handlers {
	return &Handlers{log: log, authService: authService, conversations: conversations, users: users}
}

type registerBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Number   string `json:"number"`
	Password string `json:"password"`
	Status   string `json:"status"`
}

func (h *Handlers) Register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required fields"})
		return
	}

	user, token, err := h.authService.Register(auth.RegisterRequest{
		Name:     body.Name,
		Email:    body.Email,
		Number:   body.Number,
		Password: body.Password,
	}, body.Status)
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": toUserPayload(user), "token": token})
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing credentials"})
		return
	}

	user, token, err := h.authService.Login(body.Email, body.Password)
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"message": "Invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserPayload(user), "token": token})
}

// ListUsers returns the directory of all accounts, password hashes stripped,
// sorted by name.
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers()
	if err != nil {
		h.log.Error("user listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, lo.Map(users, func(user domain.User, _ int) userPayload {
		return toUserPayload(user)
	}))
}

// ListConversations is the aggregated conversation list for the caller.
func (h *Handlers) ListConversations(c *gin.Context) {
	summaries, err := h.conversations.ListForUser(currentUserID(c))
	if err != nil {
		h.log.Error("conversation aggregation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, lo.Map(summaries, func(summary services.ConversationSummary, _ int) conversationPayload {
		return toConversationPayload(summary)
	}))
}

// OpenConversation finds or creates the 1:1 conversation with another user.
func (h *Handlers) OpenConversation(c *gin.Context) {
	conversation, err := h.conversations.FindOrCreateWith(currentUserID(c), c.Param("userId"))
	if err != nil {
		c.JSON(errors.MapToHTTPStatus(err), gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"_id": conversation.ID})
}

// ConversationMessages lists a conversation's messages oldest first.
// Non-participants get 403, unknown conversations 404.
func (h *Handlers) ConversationMessages(c *gin.Context) {
	messages, err := h.conversations.History(currentUserID(c), c.Param("id"))
	if err != nil {
		status := errors.MapToHTTPStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error("history listing failed", "conversation_id", c.Param("id"), "error", err)
			c.JSON(status, gin.H{"message": "Server error"})
			return
		}
		c.JSON(status, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lo.Map(messages, func(message domain.Message, _ int) messagePayload {
		return toMessagePayload(message)
	}))
}
