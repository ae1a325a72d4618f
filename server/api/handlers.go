package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cryptoclash/backend/pkg/market"
	"github.com/cryptoclash/backend/pkg/spec"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// queryInt reads an integer query parameter, falling back to def on
// absence or garbage.
func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Market data.

func (s *Server) handleTopCoins(c echo.Context) error {
	limit := queryInt(c, "limit", 10)
	if limit > 50 {
		limit = 50
	}
	coins, err := s.market.TopTradeable(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"coins": coins, "count": len(coins)})
}

func (s *Server) handleTopByVolume(c echo.Context) error {
	limit := queryInt(c, "limit", 30)
	if limit > 100 {
		limit = 100
	}
	pairs, err := s.market.TopByVolume(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"coins": pairs, "count": len(pairs)})
}

func (s *Server) handleCoinMapping(c echo.Context) error {
	// Static map, no upstream call.
	return c.JSON(http.StatusOK, map[string]any{"mapping": market.Mapping()})
}

func (s *Server) handleCoinInfo(c echo.Context) error {
	coin, err := s.market.CoinInfo(c.Request().Context(), c.Param("coin_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, coin)
}

func (s *Server) handlePrice(c echo.Context) error {
	price, err := s.market.Price(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, price)
}

func (s *Server) handlePriceBatch(c echo.Context) error {
	raw := c.QueryParam("symbols")
	if raw == "" {
		return c.JSON(http.StatusBadRequest, errorDetail{Detail: "symbols query parameter is required"})
	}
	var symbols []string
	for _, sym := range strings.Split(raw, ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	prices, err := s.market.Prices(c.Request().Context(), symbols)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"prices": prices})
}

func (s *Server) handleTicker(c echo.Context) error {
	ticker, err := s.market.Ticker24h(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ticker)
}

func (s *Server) handleKlines(c echo.Context) error {
	interval := c.QueryParam("interval")
	if interval == "" {
		interval = "1h"
	}
	limit := queryInt(c, "limit", 24)
	if limit > 1000 {
		limit = 1000
	}
	klines, err := s.market.Klines(c.Request().Context(), c.Param("symbol"), interval, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"symbol":   strings.ToUpper(c.Param("symbol")),
		"interval": interval,
		"klines":   klines,
	})
}

// Battle operations.

type mintTokensRequest struct {
	Address string `json:"address" validate:"required"`
	Amount  uint64 `json:"amount" validate:"required,gt=0"`
}

func (s *Server) handleMintTokens(c echo.Context) error {
	var req mintTokensRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := s.ledger.MintTokens(c.Request().Context(), req.Address, req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type createBattleRequest struct {
	Player1Address   string `json:"player1_address"`
	StakeAmount      uint64 `json:"stake_amount"`
	CoinObjectID     string `json:"coin_object_id"`
	OpponentAddress  string `json:"opponent_address"`
	TransactionBytes string `json:"transaction_bytes"`
	Signature        string `json:"signature"`
}

func (s *Server) handleCreateBattle(c echo.Context) error {
	var req createBattleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()

	// A wallet-signed transaction is submitted as-is; otherwise the
	// backend builds and signs the create call itself.
	var (
		res *spec.CreateBattleResult
		err error
	)
	switch {
	case req.TransactionBytes != "" && req.Signature != "":
		res, err = s.ledger.SubmitSignedBattle(ctx, req.TransactionBytes, req.Signature)
	case req.Player1Address != "" && req.StakeAmount > 0:
		res, err = s.ledger.CreateBattle(ctx, spec.CreateBattleParams{
			Player1:      req.Player1Address,
			StakeAmount:  req.StakeAmount,
			CoinObjectID: req.CoinObjectID,
			Opponent:     req.OpponentAddress,
		})
	default:
		return c.JSON(http.StatusBadRequest, errorDetail{
			Detail: "either transaction_bytes with signature, or player1_address with stake_amount, is required",
		})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type joinBattleRequest struct {
	BattleID       string `json:"battle_id" validate:"required"`
	Player2Address string `json:"player2_address" validate:"required"`
	StakeAmount    uint64 `json:"stake_amount" validate:"required,gt=0"`
	CoinObjectID   string `json:"coin_object_id"`
}

func (s *Server) handleJoinBattle(c echo.Context) error {
	var req joinBattleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	// Reject stale joins before any coin is split or merged. The lookup is
	// advisory: when it fails the ledger stays the final arbiter.
	if battle, err := s.ledger.GetBattleDetails(ctx, req.BattleID); err != nil {
		s.log.Warn("could not verify battle state",
			slog.String("battle_id", req.BattleID),
			slog.String("error", err.Error()))
	} else {
		if battle.IsReady {
			return c.JSON(http.StatusBadRequest, errorDetail{Detail: "battle already has both players staked"})
		}
		if battle.StakeAmount != req.StakeAmount {
			return c.JSON(http.StatusBadRequest, errorDetail{Detail: fmt.Sprintf("stake amount must be %d", battle.StakeAmount)})
		}
	}

	res, err := s.ledger.JoinBattle(ctx, req.BattleID, req.Player2Address, req.StakeAmount, req.CoinObjectID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type finalizeBattleRequest struct {
	BattleID      string `json:"battle_id" validate:"required"`
	WinnerAddress string `json:"winner_address" validate:"required"`
}

func (s *Server) handleFinalizeBattle(c echo.Context) error {
	var req finalizeBattleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := s.ledger.FinalizeBattle(c.Request().Context(), req.BattleID, req.WinnerAddress)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleGetBattle(c echo.Context) error {
	battle, err := s.ledger.GetBattleDetails(c.Request().Context(), c.Param("battle_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, battle)
}

func (s *Server) handleUserBalance(c echo.Context) error {
	snapshot, err := s.ledger.GetUserBalance(c.Request().Context(), c.Param("address"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

// bindAndValidate decodes the JSON body and runs struct validation,
// answering 400 with a detail body on either failure.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorDetail{Detail: "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorDetail{Detail: err.Error()})
	}
	return nil
}
