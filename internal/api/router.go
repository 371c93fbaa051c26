package api

import (
	"net/http"
	"os"
	"time"

	"data-manager-service/internal/config"
	"data-manager-service/internal/entity"
	"data-manager-service/internal/metrics"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// NewRouter builds the echo instance serving the operations, /health and
// /metrics.
func NewRouter(h *Handler, server config.Server, auth config.Auth) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: server.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, HeaderIdempotencyKey},
	}))
	if server.RateLimit.RPS > 0 {
		e.Use(middleware.RateLimiterWithConfig(rateLimiterConfig(server.RateLimit)))
	}
	e.Use(observe)

	e.GET("/health", Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	var guards []echo.MiddlewareFunc
	if auth.JWTSecret != "" {
		guards = append(guards, echojwt.WithConfig(echojwt.Config{
			SigningKey: []byte(auth.JWTSecret),
			ErrorHandler: func(c echo.Context, err error) error {
				return c.JSON(http.StatusUnauthorized, entity.Fail("Unauthorized"))
			},
		}))
	}
	e.POST("/", h.Invoke, guards...)
	e.GET("/:operation", h.Operation, guards...)
	e.POST("/:operation", h.Operation, guards...)

	return e
}

func rateLimiterConfig(cfg config.RateLimit) middleware.RateLimiterConfig {
	return middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RPS),
				Burst:     cfg.Burst,
				ExpiresIn: cfg.ExpiresIn,
			}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, entity.Fail("rate limit identifier unavailable"))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, entity.Fail("rate limit exceeded"))
		},
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil {
				event = logger.Error().Err(v.Error)
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

func observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		label := c.Path()
		if op, ok := c.Get(operationKey).(string); ok {
			label = op
		}
		metrics.ObserveHTTP(c.Request().Method, label, c.Response().Status, time.Since(start))
		return err
	}
}
