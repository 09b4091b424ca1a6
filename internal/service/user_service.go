package service

import (
	"errors"

	"taskmanager/backend/internal/models"
	"taskmanager/backend/internal/repository"
	"taskmanager/backend/pkg/jwt"
	"taskmanager/backend/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username or email already in use")
)

// UserService owns registration, login and account lookups.
type UserService struct {
	users repository.UserRepository
	jwt   *jwt.Service
	log   *logger.Logger
}

// NewUserService wires the user service to its repository and token issuer.
func NewUserService(users repository.UserRepository, jwtService *jwt.Service, log *logger.Logger) *UserService {
	return &UserService{
		users: users,
		jwt:   jwtService,
		log:   log.WithComponent("user-service"),
	}
}

// Register creates a new account and returns it with a fresh token.
func (s *UserService) Register(req *models.RegisterRequest) (*models.UserResponse, string, error) {
	user := &models.User{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Alias:    req.Alias,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", err
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}

	s.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	resp := user.ToResponse()
	return &resp, token, nil
}

// Login verifies credentials and returns the account with a fresh token.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(req *models.LoginRequest) (*models.UserResponse, string, error) {
	user, err := s.users.GetByUsername(req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !models.CheckPasswordHash(req.Password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}

	resp := user.ToResponse()
	return &resp, token, nil
}

// GetByID returns the account for an ID.
func (s *UserService) GetByID(id uint) (*models.UserResponse, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

// Search finds users whose username or alias contains the query, excluding
// the searcher themselves.
func (s *UserService) Search(query string, excludeID uint) ([]models.UserResponse, error) {
	users, err := s.users.Search(query, excludeID)
	if err != nil {
		return nil, err
	}

	out := make([]models.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToResponse())
	}
	return out, nil
}
