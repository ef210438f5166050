package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/yamdb/yamdb-api/internal/api/docs"
	"github.com/yamdb/yamdb-api/internal/api/handler"
	"github.com/yamdb/yamdb-api/internal/api/middleware"
	"github.com/yamdb/yamdb-api/internal/core/policy"
	"github.com/yamdb/yamdb-api/internal/core/ports"
	"github.com/yamdb/yamdb-api/internal/infrastructure/http/handlers"
)

const apiPrefix = "/api/v1"

// Services are the core dependencies the HTTP layer is built on.
type Services struct {
	Auth    ports.AuthService
	Users   ports.UserService
	Catalog ports.CatalogService
	Reviews ports.ReviewService
	Tokens  ports.TokenVerifier
}

// NewRouter builds and returns the Echo instance with all routes registered.
// deps are pinged by the readiness probe.
func NewRouter(svc Services, deps map[string]handlers.Pinger, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Pre(echomiddleware.AddTrailingSlashWithConfig(echomiddleware.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, apiPrefix)
		},
	}))
	e.Use(echoprometheus.NewMiddleware("yamdb"))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))

	// --- Operational endpoints (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- API ---
	v1 := e.Group(apiPrefix, middleware.Auth(svc.Tokens, svc.Users))

	authHandler := handler.NewAuthHandler(svc.Auth)
	v1.POST("/auth/signup/", authHandler.Signup)
	v1.POST("/auth/token/", authHandler.Token)

	userHandler := handler.NewUserHandler(svc.Users)
	v1.GET("/users/me/", userHandler.Me, middleware.Permit(policy.KindSelf, policy.ActionRetrieve))
	v1.PATCH("/users/me/", userHandler.UpdateMe, middleware.Permit(policy.KindSelf, policy.ActionPartialUpdate))
	v1.GET("/users/", userHandler.List, middleware.Permit(policy.KindUser, policy.ActionList))
	v1.POST("/users/", userHandler.Create, middleware.Permit(policy.KindUser, policy.ActionCreate))
	v1.GET("/users/:username/", userHandler.Get, middleware.Permit(policy.KindUser, policy.ActionRetrieve))
	v1.PATCH("/users/:username/", userHandler.Update, middleware.Permit(policy.KindUser, policy.ActionPartialUpdate))
	v1.DELETE("/users/:username/", userHandler.Delete, middleware.Permit(policy.KindUser, policy.ActionDelete))

	catalogHandler := handler.NewCatalogHandler(svc.Catalog)
	v1.GET("/categories/", catalogHandler.ListCategories)
	v1.POST("/categories/", catalogHandler.CreateCategory, middleware.Permit(policy.KindCategory, policy.ActionCreate))
	v1.DELETE("/categories/:slug/", catalogHandler.DeleteCategory, middleware.Permit(policy.KindCategory, policy.ActionDelete))
	v1.GET("/genres/", catalogHandler.ListGenres)
	v1.POST("/genres/", catalogHandler.CreateGenre, middleware.Permit(policy.KindGenre, policy.ActionCreate))
	v1.DELETE("/genres/:slug/", catalogHandler.DeleteGenre, middleware.Permit(policy.KindGenre, policy.ActionDelete))

	titleHandler := handler.NewTitleHandler(svc.Catalog)
	v1.GET("/titles/", titleHandler.List)
	v1.POST("/titles/", titleHandler.Create, middleware.Permit(policy.KindTitle, policy.ActionCreate))
	v1.GET("/titles/:title_id/", titleHandler.Get)
	v1.PUT("/titles/:title_id/", titleHandler.Replace, middleware.Permit(policy.KindTitle, policy.ActionUpdate))
	v1.PATCH("/titles/:title_id/", titleHandler.Update, middleware.Permit(policy.KindTitle, policy.ActionPartialUpdate))
	v1.DELETE("/titles/:title_id/", titleHandler.Delete, middleware.Permit(policy.KindTitle, policy.ActionDelete))

	// Review and comment mutations are authorized against the stored author
	// inside the service.
	reviewHandler := handler.NewReviewHandler(svc.Reviews)
	reviews := v1.Group("/titles/:title_id/reviews")
	reviews.GET("/", reviewHandler.ListReviews)
	reviews.POST("/", reviewHandler.CreateReview)
	reviews.GET("/:review_id/", reviewHandler.GetReview)
	reviews.PUT("/:review_id/", reviewHandler.ReplaceReview)
	reviews.PATCH("/:review_id/", reviewHandler.UpdateReview)
	reviews.DELETE("/:review_id/", reviewHandler.DeleteReview)

	comments := reviews.Group("/:review_id/comments")
	comments.GET("/", reviewHandler.ListComments)
	comments.POST("/", reviewHandler.CreateComment)
	comments.GET("/:comment_id/", reviewHandler.GetComment)
	comments.PUT("/:comment_id/", reviewHandler.ReplaceComment)
	comments.PATCH("/:comment_id/", reviewHandler.UpdateComment)
	comments.DELETE("/:comment_id/", reviewHandler.DeleteComment)

	return e
}

// requestLogger writes one structured access log line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
