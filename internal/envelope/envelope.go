package envelope

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avdeyev/score-ledger-system/internal/ledger"
	"github.com/avdeyev/score-ledger-system/internal/metrics"
	"github.com/avdeyev/score-ledger-system/internal/model"
	"github.com/avdeyev/score-ledger-system/internal/repository"
)

// Repository описывает контракт хранилища конвертов.
type Repository interface {
	CreatePool(ctx context.Context, p model.Pool) error
	GetPool(ctx context.Context, poolID string) (*model.Pool, error)
	GetClaim(ctx context.Context, poolID string, userID int64) (*model.ClaimEntry, error)
	ListPoolClaims(ctx context.Context, poolID string) ([]model.ClaimEntry, error)
	ClaimFromPool(ctx context.Context, poolID string, userID int64, draw func(p *model.Pool) int64) (*model.ClaimEntry, error)
	ExpireOverduePools(ctx context.Context) ([]model.Pool, error)
}

// Ledger описывает операции журнала баллов, используемые конвертами.
type Ledger interface {
	Credit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*ledger.Result, error)
	Debit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*ledger.Result, error)
}

// Service управляет жизненным циклом красных конвертов.
type Service struct {
	repo   Repository
	ledger Ledger
	alloc  *Allocator
	logger *zap.Logger
	ttl    time.Duration
}

// NewService создаёт сервис конвертов. ttl задаёт срок жизни конверта
// с момента создания.
func NewService(repo Repository, l Ledger, alloc *Allocator, logger *zap.Logger, ttl time.Duration) *Service {
	return &Service{
		repo:   repo,
		ledger: l,
		alloc:  alloc,
		logger: logger,
		ttl:    ttl,
	}
}

// Create создаёт конверт: сумма целиком списывается со счёта создателя,
// после чего конверт становится доступен для получения долей.
func (s *Service) Create(ctx context.Context, creatorID, totalAmount, totalCount int64, kind model.PoolKind, message string) (*model.Pool, error) {
	if totalCount < 1 || totalAmount < totalCount {
		return nil, ledger.ErrInvalidAmount
	}
	if kind != model.PoolKindRandom && kind != model.PoolKindAverage {
		return nil, fmt.Errorf("%w: unknown pool kind %q", ledger.ErrInvalidAmount, kind)
	}

	id := uuid.NewString()

	if _, err := s.ledger.Debit(ctx, creatorID, totalAmount,
		"red envelope create", model.CategoryEnvelope, "envelope-create:"+id); err != nil {
		return nil, err
	}

	p := model.Pool{
		ID:              id,
		CreatorID:       creatorID,
		Kind:            kind,
		Message:         message,
		TotalAmount:     totalAmount,
		TotalCount:      totalCount,
		RemainingAmount: totalAmount,
		RemainingCount:  totalCount,
		Status:          model.PoolStatusActive,
		ExpiresAt:       time.Now().Add(s.ttl),
	}

	if err := s.repo.CreatePool(ctx, p); err != nil {
		// Конверт не сохранился — возвращаем создателю списанную сумму.
		if _, cerr := s.ledger.Credit(ctx, creatorID, totalAmount,
			"red envelope create rollback", model.CategoryEnvelope, "envelope-create-undo:"+id); cerr != nil {
			s.logger.Error("envelope create rollback failed",
				zap.String("poolID", id),
				zap.Int64("creatorID", creatorID),
				zap.Int64("amount", totalAmount),
				zap.NamedError("createError", err),
				zap.NamedError("rollbackError", cerr),
			)
			metrics.CompensationFailures.Inc()
		}
		return nil, fmt.Errorf("create pool: %w", err)
	}

	return &p, nil
}

// Claim выдаёт пользователю его долю конверта и зачисляет её на счёт.
// Зачисление идемпотентно по паре (конверт, пользователь): если доля уже
// выдана, но баллы не дошли из-за сбоя, повторный вызов дошлёт зачисление
// и вернёт repository.ErrAlreadyClaimed.
func (s *Service) Claim(ctx context.Context, poolID string, userID int64) (*model.ClaimEntry, error) {
	claim, err := s.repo.ClaimFromPool(ctx, poolID, userID, s.draw)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyClaimed) {
			if existing, gerr := s.repo.GetClaim(ctx, poolID, userID); gerr == nil {
				if cerr := s.creditClaim(ctx, existing); cerr != nil {
					s.logger.Error("redeliver claim credit failed",
						zap.String("poolID", poolID),
						zap.Int64("userID", userID),
						zap.Error(cerr),
					)
				}
			}
		}
		metrics.PoolClaims.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if err := s.creditClaim(ctx, claim); err != nil {
		// Доля зафиксирована, баллы не зачислены. Повторный Claim дошлёт
		// зачисление по тому же correlation id.
		s.logger.Error("claim credit failed",
			zap.String("poolID", poolID),
			zap.Int64("userID", userID),
			zap.Int64("amount", claim.Amount),
			zap.Error(err),
		)
		metrics.PoolClaims.WithLabelValues("credit_failed").Inc()
		return claim, err
	}

	metrics.PoolClaims.WithLabelValues("ok").Inc()
	return claim, nil
}

func (s *Service) draw(p *model.Pool) int64 {
	if p.Kind == model.PoolKindAverage {
		return AverageShare(p)
	}
	return s.alloc.NextShare(p.RemainingAmount, p.RemainingCount)
}

func (s *Service) creditClaim(ctx context.Context, c *model.ClaimEntry) error {
	_, err := s.ledger.Credit(ctx, c.UserID, c.Amount,
		"red envelope claim", model.CategoryEnvelope,
		fmt.Sprintf("envelope:%s:%d", c.PoolID, c.UserID))
	return err
}

// Get возвращает конверт и список выданных долей.
func (s *Service) Get(ctx context.Context, poolID string) (*model.Pool, []model.ClaimEntry, error) {
	p, err := s.repo.GetPool(ctx, poolID)
	if err != nil {
		return nil, nil, err
	}

	claims, err := s.repo.ListPoolClaims(ctx, poolID)
	if err != nil {
		return nil, nil, err
	}

	return p, claims, nil
}

// StartExpirySweeper запускает фоновый процесс, который переводит просроченные
// конверты в EXPIRED и возвращает остаток создателям.
func (s *Service) StartExpirySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepExpired(ctx)
			}
		}
	}()
}

func (s *Service) sweepExpired(ctx context.Context) {
	expired, err := s.repo.ExpireOverduePools(ctx)
	if err != nil {
		s.logger.Error("expire pools sweep failed", zap.Error(err))
		return
	}

	for _, p := range expired {
		if p.RemainingAmount <= 0 {
			continue
		}

		_, err := s.ledger.Credit(ctx, p.CreatorID, p.RemainingAmount,
			"red envelope refund", model.CategoryEnvelope, "envelope-refund:"+p.ID)
		if err != nil {
			// Конверт уже переведён в EXPIRED и на следующем проходе
			// из ExpireOverduePools не вернётся, поэтому сбой фиксируем громко.
			s.logger.Error("envelope refund failed",
				zap.String("poolID", p.ID),
				zap.Int64("creatorID", p.CreatorID),
				zap.Int64("amount", p.RemainingAmount),
				zap.Error(err),
			)
			continue
		}

		s.logger.Info("expired envelope refunded",
			zap.String("poolID", p.ID),
			zap.Int64("creatorID", p.CreatorID),
			zap.Int64("amount", p.RemainingAmount),
		)
	}
}
