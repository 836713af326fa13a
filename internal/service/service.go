// Package service реализует бизнес-логику сервиса баллов.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avdeyev/score-ledger-system/internal/activity"
	"github.com/avdeyev/score-ledger-system/internal/ledger"
	"github.com/avdeyev/score-ledger-system/internal/model"
	"github.com/avdeyev/score-ledger-system/internal/ranking"
	"github.com/avdeyev/score-ledger-system/internal/repository"
	"github.com/avdeyev/score-ledger-system/internal/userdir"
	"github.com/avdeyev/score-ledger-system/internal/validation"
)

// Repository описывает контракт доступа к данным, используемый сервисом напрямую.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	GetBalance(ctx context.Context, userID int64) (*model.Balance, error)
	ListTransactionsByUser(ctx context.Context, userID int64, limit int) ([]model.TransactionEntry, error)
	SumTransactionsByUser(ctx context.Context, userID int64) (int64, error)
}

// PointsLedger описывает операции журнала баллов, используемые сервисом.
type PointsLedger interface {
	Credit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*ledger.Result, error)
	Debit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*ledger.Result, error)
	Transfer(ctx context.Context, fromUserID, toUserID, amount, fee int64, reason, correlationID string) (*ledger.TransferResult, error)
}

// EnvelopeService описывает операции с красными конвертами.
type EnvelopeService interface {
	Create(ctx context.Context, creatorID, totalAmount, totalCount int64, kind model.PoolKind, message string) (*model.Pool, error)
	Claim(ctx context.Context, poolID string, userID int64) (*model.ClaimEntry, error)
	Get(ctx context.Context, poolID string) (*model.Pool, []model.ClaimEntry, error)
	StartExpirySweeper(ctx context.Context, interval time.Duration)
}

// ActivityCounter описывает учёт суточных лимитов активностей.
type ActivityCounter interface {
	CheckAndReserve(ctx context.Context, userID int64, kind string, maxAllowed int) (*activity.Reservation, error)
	Release(ctx context.Context, userID int64, kind string) error
}

// RankingView описывает доступ к таблице лидеров.
type RankingView interface {
	TopN(ctx context.Context, n int) ([]ranking.Row, error)
	RankOf(ctx context.Context, userID int64) (int64, error)
}

// UserDirectory описывает разрешение имён пользователей во внутренние идентификаторы.
type UserDirectory interface {
	ResolveUserID(ctx context.Context, identifier string) (int64, error)
}

// TransferPolicy задаёт ограничения на переводы между пользователями.
type TransferPolicy struct {
	MinAmount  int64
	MaxAmount  int64
	Fee        int64
	DailyLimit int
}

// Service содержит бизнес-логику сервиса баллов.
type Service struct {
	repo        Repository
	points      PointsLedger
	envelopes   EnvelopeService
	counter     ActivityCounter
	rankingView RankingView
	directory   UserDirectory

	transferPolicy TransferPolicy
	dailyLimits    map[string]int
	sweepInterval  time.Duration
}

// NewService создаёт новый сервис с указанными зависимостями.
func NewService(
	repo Repository,
	points PointsLedger,
	envelopes EnvelopeService,
	counter ActivityCounter,
	rankingView RankingView,
	directory UserDirectory,
	transferPolicy TransferPolicy,
	dailyLimits map[string]int,
	sweepInterval time.Duration,
) *Service {
	return &Service{
		repo:           repo,
		points:         points,
		envelopes:      envelopes,
		counter:        counter,
		rankingView:    rankingView,
		directory:      directory,
		transferPolicy: transferPolicy,
		dailyLimits:    dailyLimits,
		sweepInterval:  sweepInterval,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// GetBalance возвращает баланс пользователя. Для пользователя без операций
// возвращается нулевой баланс, а не ошибка.
func (s *Service) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	b, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBalanceNotFound) {
			return &model.Balance{UserID: userID}, nil
		}
		return nil, err
	}
	return b, nil
}

// ListTransactions возвращает историю операций пользователя, новые раньше.
func (s *Service) ListTransactions(ctx context.Context, userID int64, limit int) ([]model.TransactionEntry, error) {
	return s.repo.ListTransactionsByUser(ctx, userID, limit)
}

// Reconciliation описывает результат сверки баланса с журналом операций.
type Reconciliation struct {
	UserID         int64
	TotalPoints    int64
	TransactionSum int64
	Consistent     bool
}

// ReconcileBalance сверяет баланс пользователя с суммой его записей в журнале.
// Расхождение означает потерю или создание баллов и требует разбирательства.
func (s *Service) ReconcileBalance(ctx context.Context, userID int64) (*Reconciliation, error) {
	b, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	sum, err := s.repo.SumTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum transactions: %w", err)
	}

	return &Reconciliation{
		UserID:         userID,
		TotalPoints:    b.TotalPoints,
		TransactionSum: sum,
		Consistent:     b.TotalPoints == sum,
	}, nil
}

// Credit начисляет баллы пользователю.
func (s *Service) Credit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*ledger.Result, error) {
	return s.points.Credit(ctx, userID, amount, reason, category, correlationID)
}

// Debit списывает баллы пользователя.
func (s *Service) Debit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*ledger.Result, error) {
	return s.points.Debit(ctx, userID, amount, reason, category, correlationID)
}

// Transfer переводит баллы получателю, указанному по имени в справочнике
// пользователей. Перед переводом проверяются границы суммы и суточный лимит
// переводов отправителя.
func (s *Service) Transfer(ctx context.Context, fromUserID int64, recipient string, amount int64, reason, correlationID string) (*ledger.TransferResult, error) {
	if amount < s.transferPolicy.MinAmount || amount > s.transferPolicy.MaxAmount {
		return nil, fmt.Errorf("amount %d outside [%d, %d]: %w",
			amount, s.transferPolicy.MinAmount, s.transferPolicy.MaxAmount, ledger.ErrInvalidAmount)
	}
	if !validation.IsValidCorrelationID(correlationID) {
		return nil, ledger.ErrMissingCorrelation
	}

	toUserID, err := s.directory.ResolveUserID(ctx, recipient)
	if err != nil {
		if errors.Is(err, userdir.ErrUserNotFound) {
			return nil, fmt.Errorf("recipient %q: %w", recipient, ledger.ErrRecipientNotFound)
		}
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}
	if toUserID == fromUserID {
		return nil, ledger.ErrSameAccount
	}

	res, err := s.counter.CheckAndReserve(ctx, fromUserID, "transfer", s.transferPolicy.DailyLimit)
	if err != nil {
		return nil, fmt.Errorf("reserve transfer slot: %w", err)
	}
	if !res.Allowed {
		return nil, ledger.ErrDailyLimitExceeded
	}

	tr, terr := s.points.Transfer(ctx, fromUserID, toUserID, amount, s.transferPolicy.Fee, reason, correlationID)
	if terr != nil {
		// Перевод ничего не списал — возвращаем занятый суточный слот.
		if errors.Is(terr, repository.ErrInsufficientBalance) || errors.Is(terr, ledger.ErrTransferCompensated) {
			if rerr := s.counter.Release(ctx, fromUserID, "transfer"); rerr != nil {
				return nil, errors.Join(terr, rerr)
			}
		}
		return nil, terr
	}
	return tr, nil
}

// ReserveActivity занимает один слот суточного лимита активности kind.
func (s *Service) ReserveActivity(ctx context.Context, userID int64, kind string) (*activity.Reservation, error) {
	if !validation.IsValidActivityKind(kind) {
		return nil, fmt.Errorf("unknown activity kind %q", kind)
	}
	return s.counter.CheckAndReserve(ctx, userID, kind, s.dailyLimits[kind])
}

// CreateEnvelope создаёт красный конверт от имени пользователя.
func (s *Service) CreateEnvelope(ctx context.Context, creatorID, totalAmount, totalCount int64, kind model.PoolKind, message string) (*model.Pool, error) {
	return s.envelopes.Create(ctx, creatorID, totalAmount, totalCount, kind, message)
}

// ClaimEnvelope выдаёт пользователю долю из конверта.
func (s *Service) ClaimEnvelope(ctx context.Context, poolID string, userID int64) (*model.ClaimEntry, error) {
	return s.envelopes.Claim(ctx, poolID, userID)
}

// GetEnvelope возвращает конверт и список его получателей.
func (s *Service) GetEnvelope(ctx context.Context, poolID string) (*model.Pool, []model.ClaimEntry, error) {
	return s.envelopes.Get(ctx, poolID)
}

// TopBalances возвращает первые n строк таблицы лидеров.
func (s *Service) TopBalances(ctx context.Context, n int) ([]ranking.Row, error) {
	return s.rankingView.TopN(ctx, n)
}

// RankOfUser возвращает позицию пользователя в таблице лидеров.
func (s *Service) RankOfUser(ctx context.Context, userID int64) (int64, error) {
	return s.rankingView.RankOf(ctx, userID)
}

// StartMaintenance запускает фоновые процессы сервиса: уборку просроченных
// конвертов с возвратом остатка создателю.
func (s *Service) StartMaintenance(ctx context.Context) {
	if s.envelopes == nil {
		return
	}
	s.envelopes.StartExpirySweeper(ctx, s.sweepInterval)
}
