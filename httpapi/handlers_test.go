package httpapi

import (
	"bytes"
	"chat-relay/auth"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/presence"
	"chat-relay/repositories"
	"chat-relay/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type discardSink struct{}

func (discardSink) Consume(context.Context, event.DomainEvent) error { return nil }

type apiFixture struct {
	router        *gin.Engine
	issuer        *auth.TokenIssuer
	relay         *services.RelayService
	conversations *repositories.ConversationRepository
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	users := repositories.NewUserRepository(db)
	conversations := repositories.NewConversationRepository(db)
	messages := repositories.NewMessageRepository(db, log)
	censor, err := moderation.NewCensor(nil, '*')
	require.NoError(t, err)

	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	relay := services.NewRelayService(log, presence.NewRegistry(log), users, conversations, messages, censor)
	handlers := NewHandlers(log,
		services.NewAuthService(users, issuer),
		services.NewConversationService(users, conversations, messages),
		users)
	connections := NewConnectionHandler(log, relay, issuer, 16)

	return apiFixture{
		router:        NewRouter(handlers, connections, issuer),
		issuer:        issuer,
		relay:         relay,
		conversations: conversations,
	}
}

func (f apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)
	return recorder
}

// register creates an account through the API and returns its ID and token.
func (f apiFixture) register(t *testing.T, name, email string) (string, string) {
	t.Helper()
	recorder := f.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": name, "email": email, "number": "0600000001", "password": "password1",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var response struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	return response.User["_id"].(string), response.Token
}

func TestAPI_Register_And_Login(t *testing.T) {
	req := require.New(t)
	fixture := newAPIFixture(t)

	// When a new account registers
	recorder := fixture.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Alice", "email": "alice@example.com",
		"number": "0600000001", "password": "password1", "status": "Busy",
	})
	req.Equal(http.StatusCreated, recorder.Code, recorder.Body.String())

	var created struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &created))
	req.NotEmpty(created.User["_id"])
	req.Equal("Busy", created.User["status"])
	req.NotContains(created.User, "password")

	// The issued token is immediately usable
	userID, err := fixture.issuer.VerifyToken(created.Token)
	req.NoError(err)
	req.Equal(created.User["_id"], userID)

	// Re-registering the same email conflicts
	recorder = fixture.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Imposter", "email": "alice@example.com",
		"number": "0600000002", "password": "password1",
	})
	req.Equal(http.StatusConflict, recorder.Code)

	// Login succeeds with the right password and fails generically otherwise
	recorder = fixture.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "password1",
	})
	req.Equal(http.StatusOK, recorder.Code)

	recorder = fixture.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "wrongpass1",
	})
	req.Equal(http.StatusUnauthorized, recorder.Code)
}

func TestAPI_Register_Weak_Password(t *testing.T) {
	req := require.New(t)
	fixture := newAPIFixture(t)

	recorder := fixture.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Alice", "email": "alice@example.com",
		"number": "0600000001", "password": "short",
	})
	req.Equal(http.StatusBadRequest, recorder.Code)
}

func TestAPI_Users_Directory(t *testing.T) {
	req := require.New(t)
	fixture := newAPIFixture(t)
	_, aliceToken := fixture.register(t, "Alice", "alice@example.com")
	fixture.register(t, "Bob", "bob@example.com")

	// The directory requires a session
	recorder := fixture.do(t, http.MethodGet, "/users", "", nil)
	req.Equal(http.StatusUnauthorized, recorder.Code)

	// And returns every account sorted by name
	recorder = fixture.do(t, http.MethodGet, "/users", aliceToken, nil)
	req.Equal(http.StatusOK, recorder.Code)

	var users []map[string]any
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &users))
	req.Len(users, 2)
	req.Equal("Alice", users[0]["name"])
	req.Equal("Bob", users[1]["name"])
	req.NotContains(users[0], "password")
}

func TestAPI_Conversation_Flow(t *testing.T) {
	req := require.New(t)
	fixture := newAPIFixture(t)
	aliceID, aliceToken := fixture.register(t, "Alice", "alice@example.com")
	bobID, bobToken := fixture.register(t, "Bob", "bob@example.com")

	// When alice opens a conversation with bob
	recorder := fixture.do(t, http.MethodGet, "/conversations/with/"+bobID, aliceToken, nil)
	req.Equal(http.StatusOK, recorder.Code)
	var opened struct {
		ID string `json:"_id"`
	}
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &opened))
	req.NotEmpty(opened.ID)

	// Opening it from bob's side resolves to the same conversation
	recorder = fixture.do(t, http.MethodGet, "/conversations/with/"+aliceID, bobToken, nil)
	req.Equal(http.StatusOK, recorder.Code)
	req.Contains(recorder.Body.String(), opened.ID)

	// Given a message from bob that alice has not read
	fixture.relay.Send(context.Background(), discardSink{}, bobID, aliceID, "hi alice")

	// Then alice's conversation list carries the unread aggregates
	recorder = fixture.do(t, http.MethodGet, "/conversations", aliceToken, nil)
	req.Equal(http.StatusOK, recorder.Code)

	var conversations []map[string]any
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &conversations))
	req.Len(conversations, 1)
	req.Equal(opened.ID, conversations[0]["_id"])
	req.EqualValues(1, conversations[0]["unreadCount"])
	req.Len(conversations[0]["participants"], 2)
	last := conversations[0]["lastMessage"].(map[string]any)
	req.Equal("hi alice", last["content"])

	// And the history lists the message with its wire field names
	recorder = fixture.do(t, http.MethodGet, "/conversations/"+opened.ID+"/messages", aliceToken, nil)
	req.Equal(http.StatusOK, recorder.Code)

	var messages []map[string]any
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &messages))
	req.Len(messages, 1)
	req.Equal("hi alice", messages[0]["content"])
	req.Equal(opened.ID, messages[0]["conversation"])
	req.Equal("sent", messages[0]["status"])

	// A non-participant cannot read the history
	_, claraToken := fixture.register(t, "Clara", "clara@example.com")
	recorder = fixture.do(t, http.MethodGet, "/conversations/"+opened.ID+"/messages", claraToken, nil)
	req.Equal(http.StatusForbidden, recorder.Code)

	// And an unknown conversation is a 404
	recorder = fixture.do(t, http.MethodGet, "/conversations/does-not-exist/messages", aliceToken, nil)
	req.Equal(http.StatusNotFound, recorder.Code)
}

func TestAPI_Health(t *testing.T) {
	req := require.New(t)
	fixture := newAPIFixture(t)

	recorder := fixture.do(t, http.MethodGet, "/health", "", nil)
	req.Equal(http.StatusOK, recorder.Code)
	req.Contains(recorder.Body.String(), "uptime")
}
