// Package di wires the application object graph in one place so main stays
// small and tests can build partial graphs on the in-memory repositories.
package di

import (
	"fmt"

	"gorm.io/gorm"

	"taskmanager/backend/internal/delivery"
	"taskmanager/backend/internal/repository"
	"taskmanager/backend/internal/service"
	"taskmanager/backend/internal/ws"
	"taskmanager/backend/pkg/cache"
	"taskmanager/backend/pkg/config"
	"taskmanager/backend/pkg/jwt"
	"taskmanager/backend/pkg/logger"
	"taskmanager/backend/shared/observability"
	sharedredis "taskmanager/backend/shared/redis"
)

// Container holds all the dependencies for the application
type Container struct {
	DB     *gorm.DB
	Logger *logger.Logger
	Config *config.Config

	JWTService *jwt.Service
	Cache      *cache.Cache
	Redis      *sharedredis.Client
	Metrics    *observability.ChatMetrics

	UserRepo         repository.UserRepository
	ConversationRepo repository.ConversationRepository
	MessageRepo      repository.MessageRepository

	UserService     *service.UserService
	ChatService     *service.ChatService
	TaskService     *service.TaskService
	CategoryService *service.CategoryService

	Hub           *ws.Hub
	Router        delivery.Router
	RelayListener *delivery.RelayListener
	WSHandler     *ws.Handler
}

// New builds the full object graph. In relay fan-out mode a Redis client is
// required; in direct mode redis may be nil.
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger, redis *sharedredis.Client) (*Container, error) {
	c := &Container{
		DB:     db,
		Logger: log,
		Config: cfg,
		Redis:  redis,
	}

	c.JWTService = jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	c.Cache = cache.New(cfg.Cache.TTL, cfg.Cache.PurgeWindow, cfg.Cache.MaxSize)
	c.Metrics = observability.NewChatMetrics()

	c.UserRepo = repository.NewGormUserRepository(db)
	c.ConversationRepo = repository.NewGormConversationRepository(db)
	c.MessageRepo = repository.NewGormMessageRepository(db)

	c.UserService = service.NewUserService(c.UserRepo, c.JWTService, log)
	c.ChatService = service.NewChatService(c.UserRepo, c.ConversationRepo, c.MessageRepo, log)
	c.TaskService = service.NewTaskService(db, log)
	c.CategoryService = service.NewCategoryService(db, c.Cache, log)

	c.Hub = ws.NewHub(log)

	switch cfg.Chat.FanoutMode {
	case config.FanoutDirect:
		c.Router = delivery.NewDirectRouter(c.ChatService, c.Hub, c.Metrics, log)
	case config.FanoutRelay:
		if redis == nil {
			return nil, fmt.Errorf("relay fan-out mode requires a redis client")
		}
		log.Warn("relay fan-out re-broadcasts every message to all connected sessions; clients must filter by membership")
		broker := delivery.NewRedisBroker(redis)
		c.Router = delivery.NewRelayRouter(broker, cfg.Chat.RelayTopic, c.Metrics, log)
		c.RelayListener = delivery.NewRelayListener(broker, cfg.Chat.RelayTopic, c.Hub, log)
	default:
		return nil, fmt.Errorf("unknown fan-out mode %q", cfg.Chat.FanoutMode)
	}

	authenticator := ws.NewAuthenticator(c.JWTService, c.UserRepo, cfg.Chat.AnonymousSessions, log)
	c.WSHandler = ws.NewHandler(authenticator, c.Hub, c.ChatService, c.Router, nil, log)

	return c, nil
}
