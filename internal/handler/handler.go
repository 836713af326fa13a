// Package handler содержит HTTP-обработчики API сервиса баллов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/avdeyev/score-ledger-system/internal/activity"
	"github.com/avdeyev/score-ledger-system/internal/ledger"
	"github.com/avdeyev/score-ledger-system/internal/middleware"
	"github.com/avdeyev/score-ledger-system/internal/model"
	"github.com/avdeyev/score-ledger-system/internal/ranking"
	"github.com/avdeyev/score-ledger-system/internal/repository"
	"github.com/avdeyev/score-ledger-system/internal/service"
	"github.com/avdeyev/score-ledger-system/internal/userdir"
	"github.com/avdeyev/score-ledger-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error
	GetBalance(ctx context.Context, userID int64) (*model.Balance, error)
	ListTransactions(ctx context.Context, userID int64, limit int) ([]model.TransactionEntry, error)
	Credit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*ledger.Result, error)
	Debit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*ledger.Result, error)
	Transfer(ctx context.Context, fromUserID int64, recipient string, amount int64, reason, correlationID string) (*ledger.TransferResult, error)
	ReserveActivity(ctx context.Context, userID int64, kind string) (*activity.Reservation, error)
	CreateEnvelope(ctx context.Context, creatorID, totalAmount, totalCount int64, kind model.PoolKind, message string) (*model.Pool, error)
	ClaimEnvelope(ctx context.Context, poolID string, userID int64) (*model.ClaimEntry, error)
	GetEnvelope(ctx context.Context, poolID string) (*model.Pool, []model.ClaimEntry, error)
	TopBalances(ctx context.Context, n int) ([]ranking.Row, error)
	RankOfUser(ctx context.Context, userID int64) (int64, error)
	ReconcileBalance(ctx context.Context, userID int64) (*service.Reconciliation, error)
}

// Directory определяет разрешение имён пользователей для выдачи сессий.
type Directory interface {
	ResolveUserID(ctx context.Context, identifier string) (int64, error)
}

// Handler реализует HTTP-обработчики API сервиса баллов.
type Handler struct {
	service        Service
	directory      Directory
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, dir Directory, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		directory:      dir,
		logger:         logger,
		authMiddleware: auth,
	}
}

// writeError переводит ошибки бизнес-логики в HTTP-статусы.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrMissingCorrelation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrSameAccount):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrRecipientNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, repository.ErrInsufficientBalance):
		http.Error(w, http.StatusText(http.StatusPaymentRequired), http.StatusPaymentRequired)
	case errors.Is(err, ledger.ErrTransferCompensated):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrDailyLimitExceeded):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, repository.ErrPoolNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, repository.ErrAlreadyClaimed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repository.ErrPoolFinished):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repository.ErrPoolExpired):
		http.Error(w, err.Error(), http.StatusGone)
	case errors.Is(err, repository.ErrStorageUnavailable):
		http.Error(w, "storage temporarily unavailable, please retry", http.StatusServiceUnavailable)
	default:
		h.logger.Error("request failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type sessionRequest struct {
	Username string `json:"username"`
}

type sessionResponse struct {
	UserID int64 `json:"user_id"`
}

// CreateSession выдаёт cookie сессии по имени пользователя из справочника.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidUsername(req.Username) {
		http.Error(w, "invalid username", http.StatusBadRequest)
		return
	}

	userID, err := h.directory.ResolveUserID(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, userdir.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("resolve user error", zap.Error(err), zap.String("username", req.Username))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	writeJSON(w, http.StatusOK, sessionResponse{UserID: userID})
}

type balanceResponse struct {
	UserID        int64  `json:"user_id"`
	TotalPoints   int64  `json:"total_points"`
	ActivityCount int64  `json:"activity_count"`
	LastUpdated   string `json:"last_updated,omitempty"`
}

func toBalanceResponse(b *model.Balance) balanceResponse {
	resp := balanceResponse{
		UserID:        b.UserID,
		TotalPoints:   b.TotalPoints,
		ActivityCount: b.ActivityCount,
	}
	if !b.LastUpdated.IsZero() {
		resp.LastUpdated = b.LastUpdated.Format(time.RFC3339)
	}
	return resp
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceResponse(balance))
}

type transactionResponse struct {
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
	Category      string `json:"category"`
	CorrelationID string `json:"correlation_id"`
	CreatedAt     string `json:"created_at"`
}

// GetTransactions возвращает историю операций текущего пользователя.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "limit must be in [1, 500]", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.service.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if len(entries) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]transactionResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, transactionResponse{
			Amount:        e.Amount,
			Reason:        e.Reason,
			Category:      string(e.Category),
			CorrelationID: e.CorrelationID,
			CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type reconciliationResponse struct {
	UserID         int64 `json:"user_id"`
	TotalPoints    int64 `json:"total_points"`
	TransactionSum int64 `json:"transaction_sum"`
	Consistent     bool  `json:"consistent"`
}

// GetReconciliation сверяет баланс текущего пользователя с журналом операций.
func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	rec, err := h.service.ReconcileBalance(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if !rec.Consistent {
		h.logger.Error("balance does not match transaction journal",
			zap.Int64("userID", rec.UserID),
			zap.Int64("totalPoints", rec.TotalPoints),
			zap.Int64("transactionSum", rec.TransactionSum),
		)
	}

	writeJSON(w, http.StatusOK, reconciliationResponse{
		UserID:         rec.UserID,
		TotalPoints:    rec.TotalPoints,
		TransactionSum: rec.TransactionSum,
		Consistent:     rec.Consistent,
	})
}

type mutationRequest struct {
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
	Category      string `json:"category"`
	CorrelationID string `json:"correlation_id"`
}

var knownCategories = map[model.Category]bool{
	model.CategoryACReward: true,
	model.CategoryCheckin:  true,
	model.CategoryLottery:  true,
	model.CategoryDice:     true,
	model.CategoryRPS:      true,
	model.CategoryAdjust:   true,
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, userID int64, req mutationRequest) (*ledger.Result, error),
) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !knownCategories[model.Category(req.Category)] {
		http.Error(w, "unknown category", http.StatusUnprocessableEntity)
		return
	}
	if !validation.IsValidCorrelationID(req.CorrelationID) {
		http.Error(w, "correlation id required", http.StatusBadRequest)
		return
	}

	res, err := apply(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusCreated
	if !res.Applied {
		// Повтор с тем же correlation id: состояние не менялось.
		status = http.StatusOK
	}
	writeJSON(w, status, toBalanceResponse(res.Balance))
}

// Credit начисляет баллы текущему пользователю.
func (h *Handler) Credit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, userID int64, req mutationRequest) (*ledger.Result, error) {
		return h.service.Credit(ctx, userID, req.Amount, req.Reason, model.Category(req.Category), req.CorrelationID)
	})
}

// Debit списывает баллы текущего пользователя.
func (h *Handler) Debit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, userID int64, req mutationRequest) (*ledger.Result, error) {
		return h.service.Debit(ctx, userID, req.Amount, req.Reason, model.Category(req.Category), req.CorrelationID)
	})
}

type transferRequest struct {
	To            string `json:"to"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
	CorrelationID string `json:"correlation_id"`
}

type transferResponse struct {
	FromBalance balanceResponse `json:"from_balance"`
}

// Transfer переводит баллы другому пользователю.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidUsername(req.To) {
		http.Error(w, "invalid recipient", http.StatusBadRequest)
		return
	}

	res, err := h.service.Transfer(r.Context(), userID, req.To, req.Amount, req.Reason, req.CorrelationID)
	if err != nil {
		if errors.Is(err, ledger.ErrCompensationFailed) {
			// Детали расхождения остаются в логах и метриках, клиенту отдаём 500.
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transferResponse{FromBalance: toBalanceResponse(res.FromBalance)})
}

type reserveRequest struct {
	Kind string `json:"kind"`
}

type reserveResponse struct {
	Allowed      bool `json:"allowed"`
	CurrentCount int  `json:"current_count"`
	Remaining    int  `json:"remaining"`
}

// ReserveActivity занимает слот суточного лимита активности.
func (h *Handler) ReserveActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidActivityKind(req.Kind) {
		http.Error(w, "unknown activity kind", http.StatusUnprocessableEntity)
		return
	}

	res, err := h.service.ReserveActivity(r.Context(), userID, req.Kind)
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusOK
	if !res.Allowed {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, reserveResponse{
		Allowed:      res.Allowed,
		CurrentCount: res.CurrentCount,
		Remaining:    res.Remaining,
	})
}

type createEnvelopeRequest struct {
	TotalAmount int64  `json:"total_amount"`
	TotalCount  int64  `json:"total_count"`
	Kind        string `json:"kind"`
	Message     string `json:"message"`
}

type envelopeResponse struct {
	ID              string `json:"id"`
	CreatorID       int64  `json:"creator_id"`
	Kind            string `json:"kind"`
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
	TotalAmount     int64  `json:"total_amount"`
	TotalCount      int64  `json:"total_count"`
	RemainingAmount int64  `json:"remaining_amount"`
	RemainingCount  int64  `json:"remaining_count"`
	ExpiresAt       string `json:"expires_at"`
}

func toEnvelopeResponse(p *model.Pool) envelopeResponse {
	return envelopeResponse{
		ID:              p.ID,
		CreatorID:       p.CreatorID,
		Kind:            string(p.Kind),
		Status:          string(p.Status),
		Message:         p.Message,
		TotalAmount:     p.TotalAmount,
		TotalCount:      p.TotalCount,
		RemainingAmount: p.RemainingAmount,
		RemainingCount:  p.RemainingCount,
		ExpiresAt:       p.ExpiresAt.Format(time.RFC3339),
	}
}

// CreateEnvelope создаёт красный конверт за счёт баланса текущего пользователя.
func (h *Handler) CreateEnvelope(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createEnvelopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	pool, err := h.service.CreateEnvelope(r.Context(), userID, req.TotalAmount, req.TotalCount, model.PoolKind(req.Kind), req.Message)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEnvelopeResponse(pool))
}

type claimResponse struct {
	PoolID string `json:"pool_id"`
	UserID int64  `json:"user_id"`
	Amount int64  `json:"amount"`
}

// ClaimEnvelope выдаёт текущему пользователю долю из конверта.
func (h *Handler) ClaimEnvelope(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	poolID := chi.URLParam(r, "id")

	claim, err := h.service.ClaimEnvelope(r.Context(), poolID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, claimResponse{
		PoolID: claim.PoolID,
		UserID: claim.UserID,
		Amount: claim.Amount,
	})
}

type envelopeDetailsResponse struct {
	Envelope envelopeResponse `json:"envelope"`
	Claims   []claimResponse  `json:"claims"`
}

// GetEnvelope возвращает конверт и список его получателей.
func (h *Handler) GetEnvelope(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "id")

	pool, claims, err := h.service.GetEnvelope(r.Context(), poolID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := envelopeDetailsResponse{
		Envelope: toEnvelopeResponse(pool),
		Claims:   make([]claimResponse, 0, len(claims)),
	}
	for _, c := range claims {
		resp.Claims = append(resp.Claims, claimResponse{
			PoolID: c.PoolID,
			UserID: c.UserID,
			Amount: c.Amount,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type rankingRowResponse struct {
	Rank        int64 `json:"rank"`
	UserID      int64 `json:"user_id"`
	TotalPoints int64 `json:"total_points"`
}

// GetRanking возвращает первые строки таблицы лидеров.
func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request) {
	n := 10
	if s := r.URL.Query().Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 || v > 100 {
			http.Error(w, "n must be in [1, 100]", http.StatusBadRequest)
			return
		}
		n = v
	}

	rows, err := h.service.TopBalances(r.Context(), n)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]rankingRowResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, rankingRowResponse{
			Rank:        row.Rank,
			UserID:      row.UserID,
			TotalPoints: row.TotalPoints,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type selfRankResponse struct {
	Rank    int64           `json:"rank"`
	Balance balanceResponse `json:"balance"`
}

// GetSelfRank возвращает позицию текущего пользователя в таблице лидеров.
func (h *Handler) GetSelfRank(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	rank, err := h.service.RankOfUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrBalanceNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.writeError(w, err)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, selfRankResponse{
		Rank:    rank,
		Balance: toBalanceResponse(balance),
	})
}

// Ping проверяет доступность хранилища.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
