// Package api exposes the battle and market-data operations over HTTP.
// This layer only translates requests and typed errors; all decisions
// live in the chain and market packages.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cryptoclash/backend/pkg/chain"
	"github.com/cryptoclash/backend/pkg/market"
	"github.com/cryptoclash/backend/pkg/metrics"
	"github.com/cryptoclash/backend/pkg/spec"
)

// Server is the HTTP API.
type Server struct {
	echo    *echo.Echo
	ledger  spec.Ledger
	market  *market.Client
	metrics *metrics.Metrics
	log     *slog.Logger
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// New wires the routes. metrics may be nil.
func New(ledger spec.Ledger, mkt *market.Client, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		ledger:  ledger,
		market:  mkt,
		metrics: m,
		log:     log.With(slog.String("component", "api")),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}
	e.Use(middleware.Recover())
	e.Use(s.requestLogger)

	e.GET("/", s.handleHealth)
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	e.GET("/api/coins/top", s.handleTopCoins)
	e.GET("/api/coins/volume", s.handleTopByVolume)
	e.GET("/api/coins/mapping", s.handleCoinMapping)
	e.GET("/api/coins/:coin_id/info", s.handleCoinInfo)
	e.GET("/api/price/batch", s.handlePriceBatch)
	e.GET("/api/price/:symbol", s.handlePrice)
	e.GET("/api/ticker/:symbol", s.handleTicker)
	e.GET("/api/klines/:symbol", s.handleKlines)

	e.POST("/api/tokens/mint", s.handleMintTokens)
	e.POST("/api/battles/create", s.handleCreateBattle)
	e.POST("/api/battles/join", s.handleJoinBattle)
	e.POST("/api/battles/finalize", s.handleFinalizeBattle)
	e.GET("/api/battles/:battle_id", s.handleGetBattle)
	e.GET("/api/users/:address/balance", s.handleUserBalance)

	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.Info("API server listening", slog.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestLogger tags each request with an id and logs its outcome.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := uuid.NewString()
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		logArgs := []any{
			slog.String("request_id", requestID),
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
			slog.Int("status", status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		switch {
		case status >= 500:
			s.log.Error("request failed", logArgs...)
		case status >= 400:
			s.log.Warn("request rejected", logArgs...)
		default:
			s.log.Info("request completed", logArgs...)
		}
		return nil
	}
}

// errorDetail mirrors the error body shape the frontend expects.
type errorDetail struct {
	Detail string `json:"detail"`
}

// writeError maps a typed error onto a status code and a detail body.
func writeError(c echo.Context, err error) error {
	return c.JSON(statusFor(err), errorDetail{Detail: err.Error()})
}

// statusFor is the whole error-translation policy of the HTTP layer.
func statusFor(err error) int {
	var (
		insufficient *chain.InsufficientBalanceError
		notFound     *chain.NotFoundError
		conflict     *chain.ConflictError
		malformed    *chain.MalformedObjectError
		rpcErr       *chain.RpcError
		execErr      *chain.ExecutionError
		transport    *chain.TransportError
		query        *chain.QueryError
		signing      *chain.SigningError
		rateLimited  *market.RateLimitedError
	)
	switch {
	case errors.As(err, &insufficient):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrCoinNotFound):
		return http.StatusNotFound
	case errors.As(err, &rateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &signing), errors.Is(err, chain.ErrNotConfigured):
		return http.StatusInternalServerError
	case errors.As(err, &malformed),
		errors.As(err, &rpcErr),
		errors.As(err, &execErr),
		errors.As(err, &transport),
		errors.As(err, &query):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
