package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	nativecommon "github.com/lidofinance/anchor-collateral-steth/native/common"
	"github.com/lidofinance/anchor-collateral-steth/native/vault"
	"github.com/lidofinance/anchor-collateral-steth/services/vaultd/journal"
	"github.com/lidofinance/anchor-collateral-steth/services/vaultd/keeper"
)

// VaultReader exposes the read side of the vault.
type VaultReader interface {
	State() *vault.State
	CurrentRate() (*big.Int, error)
	PendingYield() (*big.Int, error)
	CanDepositOrWithdraw() bool
	QuoteDeposit(amount *big.Int) (*big.Int, error)
	QuoteWithdraw(receiptAmount *big.Int) (*big.Int, error)
}

// EventSource lists journaled events.
type EventSource interface {
	Recent(ctx context.Context, eventType string, limit int) ([]journal.Entry, error)
}

// Collector triggers a collection attempt.
type Collector interface {
	Tick(ctx context.Context) (keeper.Result, error)
	Last() keeper.Result
}

// Rebaser applies base-asset oracle reports on a devnet.
type Rebaser interface {
	Rebase(numerator, denominator int64) error
	SetReferencePrice(price string) error
}

// Config defines HTTP server parameters and dependencies. Keeper and Devnet
// are optional; their routes are only mounted when set.
type Config struct {
	ListenAddress string
	BearerToken   string
	Vault         VaultReader
	Events        EventSource
	Keeper        Collector
	Devnet        Rebaser
	// Refresh runs before every metrics scrape.
	Refresh func()
	Logger  *slog.Logger
}

// Server hosts the status, event and admin endpoints for vaultd.
type Server struct {
	cfg    Config
	logger *slog.Logger
	router http.Handler
}

// New constructs a server.
func New(cfg Config) (*Server, error) {
	if cfg.Vault == nil {
		return nil, fmt.Errorf("vault reader required")
	}
	if cfg.Events == nil {
		return nil, fmt.Errorf("event source required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.BearerToken = strings.TrimSpace(cfg.BearerToken)
	if (cfg.Keeper != nil || cfg.Devnet != nil) && cfg.BearerToken == "" {
		return nil, fmt.Errorf("admin bearer token required for mutating endpoints")
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.router = s.buildRouter()
	return s, nil
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metricsHandler())
	r.Route("/v1", func(api chi.Router) {
		api.Get("/status", s.handleStatus)
		api.Get("/rate", s.handleRate)
		api.Get("/quote/deposit", s.handleQuote(s.cfg.Vault.QuoteDeposit))
		api.Get("/quote/withdraw", s.handleQuote(s.cfg.Vault.QuoteWithdraw))
		api.Get("/events", s.handleEvents)
		api.Group(func(admin chi.Router) {
			admin.Use(s.requireAdmin)
			if s.cfg.Keeper != nil {
				admin.Get("/keeper", s.handleKeeperStatus)
				admin.Post("/keeper/collect", s.handleCollect)
			}
			if s.cfg.Devnet != nil {
				admin.Post("/devnet/rebase", s.handleRebase)
				admin.Post("/devnet/reference", s.handleReference)
			}
		})
	})
	return otelhttp.NewHandler(r, "vaultd")
}

// Run starts the HTTP server and blocks until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.ListenAddress, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info("http server listening", "listen", s.cfg.ListenAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *Server) metricsHandler() http.Handler {
	prom := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Refresh != nil {
			s.cfg.Refresh()
		}
		prom.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Admin                         string `json:"admin"`
	EmergencyAdmin                string `json:"emergencyAdmin"`
	LiquidationsAdmin             string `json:"liquidationsAdmin"`
	ReceiptToken                  string `json:"receiptToken"`
	BaseAsset                     string `json:"baseAsset"`
	BridgeConnector               string `json:"bridgeConnector"`
	RewardsLiquidator             string `json:"rewardsLiquidator"`
	InsuranceConnector            string `json:"insuranceConnector"`
	RemoteDistributor             string `json:"remoteDistributor"`
	Version                       uint64 `json:"version"`
	OperationsAllowed             bool   `json:"operationsAllowed"`
	CanDepositOrWithdraw          bool   `json:"canDepositOrWithdraw"`
	Rate                          string `json:"rate,omitempty"`
	PendingYield                  string `json:"pendingYield,omitempty"`
	TotalReceiptRefunded          string `json:"totalReceiptRefunded"`
	LastCollection                int64  `json:"lastCollection"`
	NextRestrictedCollection      int64  `json:"nextRestrictedCollection"`
	NextPublicCollection          int64  `json:"nextPublicCollection"`
	NoLiquidationIntervalSecs     int64  `json:"noLiquidationIntervalSecs"`
	RestrictedLiquidationInterval int64  `json:"restrictedLiquidationIntervalSecs"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.cfg.Vault.State()
	if !state.Initialized() {
		writeError(w, http.StatusServiceUnavailable, vault.ErrNotInitialized)
		return
	}
	restricted, public := vault.NextCollection(state)
	resp := statusResponse{
		Admin:                         state.Admin.Hex(),
		EmergencyAdmin:                state.EmergencyAdmin.Hex(),
		LiquidationsAdmin:             state.LiquidationsAdmin.Hex(),
		ReceiptToken:                  state.ReceiptToken.Hex(),
		BaseAsset:                     state.BaseAsset.Hex(),
		BridgeConnector:               state.BridgeConnector.Hex(),
		RewardsLiquidator:             state.RewardsLiquidator.Hex(),
		InsuranceConnector:            state.InsuranceConnector.Hex(),
		RemoteDistributor:             state.RemoteDistributor.Hex(),
		Version:                       state.Version,
		OperationsAllowed:             state.OperationsAllowed,
		CanDepositOrWithdraw:          s.cfg.Vault.CanDepositOrWithdraw(),
		TotalReceiptRefunded:          state.TotalReceiptRefunded.String(),
		LastCollection:                state.LastLiquidationTime.Unix(),
		NextRestrictedCollection:      restricted.Unix(),
		NextPublicCollection:          public.Unix(),
		NoLiquidationIntervalSecs:     int64(state.NoLiquidationInterval / time.Second),
		RestrictedLiquidationInterval: int64(state.RestrictedLiquidationInterval / time.Second),
	}
	if rate, err := s.cfg.Vault.CurrentRate(); err == nil {
		resp.Rate = rate.String()
	}
	if yield, err := s.cfg.Vault.PendingYield(); err == nil {
		resp.PendingYield = yield.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	rate, err := s.cfg.Vault.CurrentRate()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"rate": rate.String(), "scale": vault.Scale.String()})
}

func (s *Server) handleQuote(quote func(*big.Int) (*big.Int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("amount"))
		amount, ok := new(big.Int).SetString(raw, 10)
		if !ok || amount.Sign() <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("amount must be a positive integer"))
			return
		}
		out, err := quote(amount)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"amount": amount.String(), "quote": out.String()})
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be within [1, 1000]"))
			return
		}
		limit = parsed
	}
	entries, err := s.cfg.Events.Recent(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		s.logger.Error("list events failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list events"))
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": entries})
}

type keeperResponse struct {
	Attempted    bool   `json:"attempted"`
	Skipped      string `json:"skipped,omitempty"`
	BaseAmount   string `json:"baseAmount,omitempty"`
	TargetAmount string `json:"targetAmount,omitempty"`
	Error        string `json:"error,omitempty"`
}

func renderResult(res keeper.Result) keeperResponse {
	out := keeperResponse{Attempted: res.Attempted, Skipped: res.Skipped}
	if res.Receipt.BaseAmount != nil {
		out.BaseAmount = res.Receipt.BaseAmount.String()
	}
	if res.Receipt.TargetAmount != nil {
		out.TargetAmount = res.Receipt.TargetAmount.String()
	}
	return out
}

func (s *Server) handleKeeperStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, renderResult(s.cfg.Keeper.Last()))
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	res, err := s.cfg.Keeper.Tick(r.Context())
	out := renderResult(res)
	if err != nil {
		out.Error = err.Error()
		writeJSON(w, statusFor(err), out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRebase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Numerator   int64 `json:"numerator"`
		Denominator int64 `json:"denominator"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body"))
		return
	}
	if req.Numerator <= 0 || req.Denominator <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("numerator and denominator must be positive"))
		return
	}
	if err := s.cfg.Devnet.Rebase(req.Numerator, req.Denominator); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.logger.Info("devnet rebase applied", "numerator", req.Numerator, "denominator", req.Denominator)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price string `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body"))
		return
	}
	if err := s.cfg.Devnet.SetReferencePrice(req.Price); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps vault errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, nativecommon.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, nativecommon.ErrTooSoon):
		return http.StatusTooEarly
	case errors.Is(err, nativecommon.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, nativecommon.ErrContractStopped),
		errors.Is(err, nativecommon.ErrOperationsNotPermitted),
		errors.Is(err, nativecommon.ErrInvalidState),
		errors.Is(err, nativecommon.ErrExcessPriceDeviation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
