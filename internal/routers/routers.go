package routers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	_ "github.com/sbilibin2017/gw-todo/docs"
	"github.com/sbilibin2017/gw-todo/internal/handlers"
	"github.com/sbilibin2017/gw-todo/internal/jwt"
	"github.com/sbilibin2017/gw-todo/internal/logger"
	"github.com/sbilibin2017/gw-todo/internal/middlewares"
	"github.com/sbilibin2017/gw-todo/internal/repositories"
	"github.com/sbilibin2017/gw-todo/internal/services"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Config carries the dependencies shared by both routers.
type Config struct {
	DB             *sqlx.DB
	JWT            *jwt.JWT
	KafkaWriter    services.KafkaWriter // nil disables event publishing
	AllowedOrigins []string
	Now            func() time.Time // todo timestamps clock; nil means time.Now
}

// NewUsersRouter builds the users service routes: registration and login.
func NewUsersRouter(cfg Config) http.Handler {
	userReadRepo := repositories.NewUserReadRepository(cfg.DB)
	userWriteRepo := repositories.NewUserWriteRepository(cfg.DB)

	authService := services.NewAuthService(userReadRepo, userWriteRepo, cfg.JWT, cfg.KafkaWriter)

	r := newBaseRouter(cfg)
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", handlers.NewRegisterHandler(authService))
		r.Post("/login", handlers.NewLoginHandler(authService))
	})
	return r
}

// NewTodosRouter builds the todos service routes. Every /api/todos route
// requires a bearer token.
func NewTodosRouter(cfg Config) http.Handler {
	todoReadRepo := repositories.NewTodoReadRepository(cfg.DB)
	todoWriteRepo := repositories.NewTodoWriteRepository(cfg.DB)

	var opts []services.TodoServiceOpt
	if cfg.Now != nil {
		opts = append(opts, services.WithNow(cfg.Now))
	}
	todoService := services.NewTodoService(todoReadRepo, todoWriteRepo, cfg.KafkaWriter, opts...)

	r := newBaseRouter(cfg)
	r.Route("/api/todos", func(r chi.Router) {
		r.Use(middlewares.AuthMiddleware(cfg.JWT))

		r.Post("/", handlers.NewCreateTodoHandler(todoService))
		r.Get("/", handlers.NewListTodosHandler(todoService))
		r.Get("/{id}", handlers.NewGetTodoHandler(todoService))
		r.Put("/{id}", handlers.NewUpdateTodoHandler(todoService))
		r.Delete("/{id}", handlers.NewDeleteTodoHandler(todoService))
	})
	return r
}

func newBaseRouter(cfg Config) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(logger.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.NewHealthHandler(cfg.DB))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	return r
}
