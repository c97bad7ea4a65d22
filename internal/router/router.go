package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"tasktracker/internal/auth"
	"tasktracker/internal/handler"
	"tasktracker/internal/model"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth *handler.AuthHandler
	User *handler.UserHandler
	Task *handler.TaskHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, logger *slog.Logger, resolver *auth.Resolver, h Handlers) {
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api", resolver.Middleware())

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/logout", h.Auth.Logout)

	api.GET("/me", h.User.Me, auth.RequireAuthenticated())

	tasks := api.Group("/tasks", auth.RequireRole(model.RoleAdmin, model.RoleUser))
	tasks.POST("", h.Task.CreateTask)
	tasks.GET("", h.Task.GetTasks)
	tasks.GET("/:id", h.Task.GetTask)
	tasks.GET("/author/:authorId", h.Task.GetTasksByAuthor)
	tasks.GET("/assignee/:assigneeId", h.Task.GetTasksByAssignee)
	tasks.PUT("/:id", h.Task.UpdateTask)

	admin := api.Group("/admin", auth.RequireRole(model.RoleAdmin))
	admin.DELETE("/tasks/:id", h.Task.DeleteTask)
	admin.GET("/users", h.User.ListUsers)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				level = slog.LevelWarn
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
