// Package httpapi exposes the REST surface and the websocket endpoint the
// mobile client connects to.
package httpapi

import (
	"chat-relay/auth"

	"github.com/gin-gonic/gin"
)

// NewRouter assembles the route table:
//
//	POST /auth/register          credential issuance
//	POST /auth/login
//	GET  /users                  directory (auth)
//	GET  /conversations          aggregated list (auth)
//	GET  /conversations/with/:userId
//	GET  /conversations/:id/messages
//	GET  /ws                     real-time relay connection
//	GET  /health
func NewRouter(handlers *Handlers, connections *ConnectionHandler, issuer *auth.TokenIssuer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", NewHealth().Handle)
	router.GET("/ws", connections.Handle)

	router.POST("/auth/register", handlers.Register)
	router.POST("/auth/login", handlers.Login)

	authed := router.Group("/", RequireAuth(issuer))
	authed.GET("/users", handlers.ListUsers)
	authed.GET("/conversations", handlers.ListConversations)
	authed.GET("/conversations/with/:userId", handlers.OpenConversation)
	authed.GET("/conversations/:id/messages", handlers.ConversationMessages)

	return router
}
