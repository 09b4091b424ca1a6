package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/backend/internal/api"
	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/repository/memory"
	"taskmanager/backend/internal/service"
	"taskmanager/backend/pkg/errors"
	"taskmanager/backend/pkg/jwt"
	"taskmanager/backend/pkg/logger"
	"taskmanager/backend/pkg/middleware"
)

type apiFixture struct {
	engine *gin.Engine
	store  *memory.Store
	jwt    *jwt.Service
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	log := logger.New(logger.Config{Level: "error"})
	jwtService := jwt.NewService("test-secret-key", time.Hour)

	userService := service.NewUserService(store.Users(), jwtService, log)
	chatService := service.NewChatService(store.Users(), store.Conversations(), store.Messages(), log)

	authHandler := api.NewAuthHandler(userService)
	userHandler := api.NewUserHandler(userService)
	chatHandler := api.NewChatHandler(chatService)

	engine := gin.New()
	engine.Use(errors.ErrorHandler())

	jwtAuth := middleware.JWTAuth(jwtService, log)
	engine.POST("/api/auth/register", authHandler.Register)
	engine.POST("/api/auth/login", authHandler.Login)
	engine.GET("/api/auth/me", jwtAuth, authHandler.Me)
	engine.GET("/api/users/search", jwtAuth, userHandler.Search)
	engine.GET("/api/chat/conversations", jwtAuth, chatHandler.ListConversations)
	engine.POST("/api/chat/conversations/private", jwtAuth, chatHandler.OpenPrivate)
	engine.GET("/api/chat/conversations/:id/messages", jwtAuth, chatHandler.Messages)

	return &apiFixture{engine: engine, store: store, jwt: jwtService}
}

func (f *apiFixture) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) addUser(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Password: "password123"}
	require.NoError(t, f.store.Users().Create(user))
	token, err := f.jwt.GenerateToken(user.ID, user.Username)
	require.NoError(t, err)
	return user, token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &body)
	return body.Error.Code
}

func TestRegisterLoginMe(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice",
		"password": "correct-horse",
		"email":    "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var registered struct {
		User  models.UserResponse `json:"user"`
		Token string              `json:"token"`
	}
	decodeBody(t, rec, &registered)
	require.NotEmpty(t, registered.Token)

	rec = f.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "alice",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodGet, "/api/auth/me", registered.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me models.UserResponse
	decodeBody(t, rec, &me)
	assert.Equal(t, "alice", me.Username)

	rec = f.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rec))
}

func TestOpenPrivate_IdempotentOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	_, aliceToken := f.addUser(t, "alice")
	bob, bobToken := f.addUser(t, "bob")
	alice, _ := f.store.Users().GetByUsername("alice")

	rec := f.request(t, http.MethodPost,
		fmt.Sprintf("/api/chat/conversations/private?userId=%d", bob.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var first models.Conversation
	decodeBody(t, rec, &first)
	require.NotZero(t, first.ID)

	// Same pair from the other side returns the same conversation.
	rec = f.request(t, http.MethodPost,
		fmt.Sprintf("/api/chat/conversations/private?userId=%d", alice.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var second models.Conversation
	decodeBody(t, rec, &second)
	assert.Equal(t, first.ID, second.ID)

	rec = f.request(t, http.MethodPost, "/api/chat/conversations/private?userId=9999", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.request(t, http.MethodPost,
		fmt.Sprintf("/api/chat/conversations/private?userId=%d", alice.ID), aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SELF_CONVERSATION", errorCode(t, rec))
}

func TestMessages_AccessControlOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	alice, aliceToken := f.addUser(t, "alice")
	bob, _ := f.addUser(t, "bob")
	_, malloryToken := f.addUser(t, "mallory")

	rec := f.request(t, http.MethodPost,
		fmt.Sprintf("/api/chat/conversations/private?userId=%d", bob.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var conv models.Conversation
	decodeBody(t, rec, &conv)

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       alice.ID,
		Content:        "hello",
		Timestamp:      time.Now().UTC(),
	}
	require.NoError(t, f.store.Messages().Append(msg))

	path := fmt.Sprintf("/api/chat/conversations/%d/messages", conv.ID)

	rec = f.request(t, http.MethodGet, path, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.MessageView
	decodeBody(t, rec, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)

	rec = f.request(t, http.MethodGet, path, malloryToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_PARTICIPANT", errorCode(t, rec))

	rec = f.request(t, http.MethodGet, "/api/chat/conversations/9999/messages", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.request(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSearch_ExcludesSelf(t *testing.T) {
	f := newAPIFixture(t)
	_, aliceToken := f.addUser(t, "alice")
	f.addUser(t, "alicia")

	rec := f.request(t, http.MethodGet, "/api/users/search?q=ali", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []models.UserResponse
	decodeBody(t, rec, &results)
	require.Len(t, results, 1)
	assert.Equal(t, "alicia", results[0].Username)

	rec = f.request(t, http.MethodGet, "/api/users/search?q=", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
