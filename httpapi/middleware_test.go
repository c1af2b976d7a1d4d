package httpapi

import (
	"chat-relay/auth"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newProtectedRouter(issuer *auth.TokenIssuer) *gin.Engine {
	router := gin.New()
	router.GET("/private", RequireAuth(issuer), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": currentUserID(c)})
	})
	return router
}

func TestRequireAuth_Missing_Token(t *testing.T) {
	req := require.New(t)
	router := newProtectedRouter(auth.NewTokenIssuer("secret", time.Hour))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/private", nil))

	req.Equal(http.StatusUnauthorized, recorder.Code)
}

func TestRequireAuth_Invalid_Token(t *testing.T) {
	req := require.New(t)
	router := newProtectedRouter(auth.NewTokenIssuer("secret", time.Hour))

	request := httptest.NewRequest(http.MethodGet, "/private", nil)
	request.Header.Set("Authorization", "Bearer not.a.token")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	req.Equal(http.StatusUnauthorized, recorder.Code)
}

func TestRequireAuth_Valid_Token_Binds_Identity(t *testing.T) {
	req := require.New(t)
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	router := newProtectedRouter(issuer)

	token, err := issuer.Sign("user-1")
	req.NoError(err)

	request := httptest.NewRequest(http.MethodGet, "/private", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	req.Equal(http.StatusOK, recorder.Code)
	req.JSONEq(`{"userId":"user-1"}`, recorder.Body.String())
}
