package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/repository/memory"
	"taskmanager/backend/internal/service"
	"taskmanager/backend/pkg/jwt"
	"taskmanager/backend/pkg/logger"
)

func newUserFixture(t *testing.T) (*service.UserService, *memory.Store, *jwt.Service) {
	t.Helper()
	store := memory.NewStore()
	jwtService := jwt.NewService("test-secret-key", time.Hour)
	log := logger.New(logger.Config{Level: "error"})
	return service.NewUserService(store.Users(), jwtService, log), store, jwtService
}

func TestRegisterAndLogin(t *testing.T) {
	users, _, jwtService := newUserFixture(t)

	registered, token, err := users.Register(&models.RegisterRequest{
		Username: "alice",
		Password: "correct-horse",
		Email:    "alice@example.com",
		Alias:    "Alice A.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "alice", registered.Username)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)

	loggedIn, loginToken, err := users.Login(&models.LoginRequest{
		Username: "alice",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, loginToken)
	assert.Equal(t, registered.ID, loggedIn.ID)
}

func TestLogin_BadCredentialsAreIndistinguishable(t *testing.T) {
	users, _, _ := newUserFixture(t)

	_, _, err := users.Register(&models.RegisterRequest{
		Username: "alice",
		Password: "correct-horse",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)

	_, _, err = users.Login(&models.LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, _, err = users.Login(&models.LoginRequest{Username: "nobody", Password: "correct-horse"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	users, _, _ := newUserFixture(t)

	_, _, err := users.Register(&models.RegisterRequest{
		Username: "alice",
		Password: "correct-horse",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)

	_, _, err = users.Register(&models.RegisterRequest{
		Username: "alice",
		Password: "other-password",
		Email:    "alice2@example.com",
	})
	assert.ErrorIs(t, err, service.ErrUsernameTaken)
}

func TestSearch_ExcludesSearcherAndMatchesAlias(t *testing.T) {
	users, store, _ := newUserFixture(t)
	alice := createUser(t, store, "alice", "")
	createUser(t, store, "alicia", "")
	createUser(t, store, "bob", "Ali Baba")

	results, err := users.Search("ali", alice.ID)
	require.NoError(t, err)

	names := make([]string, 0, len(results))
	for _, u := range results {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"alicia", "bob"}, names)
}
