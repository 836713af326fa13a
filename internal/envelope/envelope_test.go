package envelope

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/avdeyev/score-ledger-system/internal/ledger"
	"github.com/avdeyev/score-ledger-system/internal/model"
	"github.com/avdeyev/score-ledger-system/internal/repository"
)

type recordedOp struct {
	userID        int64
	amount        int64
	correlationID string
}

type stubLedger struct {
	credits   []recordedOp
	debits    []recordedOp
	debitErr  error
	creditErr error
}

func (s *stubLedger) Credit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*ledger.Result, error) {
	if s.creditErr != nil {
		return nil, s.creditErr
	}
	s.credits = append(s.credits, recordedOp{userID, amount, correlationID})
	return &ledger.Result{Balance: &model.Balance{UserID: userID}, Applied: true}, nil
}

func (s *stubLedger) Debit(ctx context.Context, userID, amount int64, reason string, category model.Category, correlationID string) (*ledger.Result, error) {
	if s.debitErr != nil {
		return nil, s.debitErr
	}
	s.debits = append(s.debits, recordedOp{userID, amount, correlationID})
	return &ledger.Result{Balance: &model.Balance{UserID: userID}, Applied: true}, nil
}

type stubRepo struct {
	pool      *model.Pool
	claim     *model.ClaimEntry
	claims    []model.ClaimEntry
	expired   []model.Pool
	createErr error
	claimErr  error
}

func (s *stubRepo) CreatePool(ctx context.Context, p model.Pool) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.pool = &p
	return nil
}

func (s *stubRepo) GetPool(ctx context.Context, poolID string) (*model.Pool, error) {
	if s.pool == nil {
		return nil, repository.ErrPoolNotFound
	}
	return s.pool, nil
}

func (s *stubRepo) GetClaim(ctx context.Context, poolID string, userID int64) (*model.ClaimEntry, error) {
	if s.claim == nil {
		return nil, repository.ErrClaimNotFound
	}
	return s.claim, nil
}

func (s *stubRepo) ListPoolClaims(ctx context.Context, poolID string) ([]model.ClaimEntry, error) {
	return s.claims, nil
}

func (s *stubRepo) overdue() bool {
	return s.pool != nil && s.pool.Status == model.PoolStatusActive &&
		!s.pool.ExpiresAt.IsZero() && time.Now().After(s.pool.ExpiresAt)
}

func (s *stubRepo) ClaimFromPool(ctx context.Context, poolID string, userID int64, draw func(p *model.Pool) int64) (*model.ClaimEntry, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	// Просроченный конверт отклоняется без смены статуса, как в хранилище.
	if s.overdue() {
		return nil, repository.ErrPoolExpired
	}
	amount := draw(s.pool)
	c := &model.ClaimEntry{PoolID: poolID, UserID: userID, Amount: amount, ClaimedAt: time.Now()}
	s.pool.RemainingAmount -= amount
	s.pool.RemainingCount--
	return c, nil
}

func (s *stubRepo) ExpireOverduePools(ctx context.Context) ([]model.Pool, error) {
	if s.overdue() {
		s.pool.Status = model.PoolStatusExpired
		s.expired = append(s.expired, *s.pool)
	}
	return s.expired, nil
}

func newTestService(repo *stubRepo, l *stubLedger) *Service {
	return NewService(repo, l, NewAllocator(), zap.NewNop(), time.Hour)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(&stubRepo{}, &stubLedger{})

	tests := []struct {
		name   string
		amount int64
		count  int64
		kind   model.PoolKind
	}{
		{name: "zero count", amount: 10, count: 0, kind: model.PoolKindRandom},
		{name: "amount below count", amount: 2, count: 3, kind: model.PoolKindRandom},
		{name: "unknown kind", amount: 10, count: 2, kind: model.PoolKind("LUCKY")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 1, tt.amount, tt.count, tt.kind, "")
			if !errors.Is(err, ledger.ErrInvalidAmount) {
				t.Fatalf("got %v, want ErrInvalidAmount", err)
			}
		})
	}
}

func TestCreateDebitsCreator(t *testing.T) {
	repo := &stubRepo{}
	led := &stubLedger{}
	svc := newTestService(repo, led)

	p, err := svc.Create(context.Background(), 5, 100, 3, model.PoolKindRandom, "gl hf")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if p.RemainingAmount != 100 || p.RemainingCount != 3 || p.Status != model.PoolStatusActive {
		t.Fatalf("unexpected pool state: %+v", p)
	}

	if len(led.debits) != 1 {
		t.Fatalf("debits = %d, want 1", len(led.debits))
	}
	d := led.debits[0]
	if d.userID != 5 || d.amount != 100 || !strings.HasPrefix(d.correlationID, "envelope-create:") {
		t.Fatalf("unexpected debit: %+v", d)
	}
}

func TestCreateInsufficientFunds(t *testing.T) {
	led := &stubLedger{debitErr: repository.ErrInsufficientBalance}
	svc := newTestService(&stubRepo{}, led)

	_, err := svc.Create(context.Background(), 5, 100, 3, model.PoolKindRandom, "")
	if !errors.Is(err, repository.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
}

func TestCreateRollsBackOnStoreFailure(t *testing.T) {
	repo := &stubRepo{createErr: errors.New("connection refused")}
	led := &stubLedger{}
	svc := newTestService(repo, led)

	_, err := svc.Create(context.Background(), 5, 100, 3, model.PoolKindRandom, "")
	if err == nil {
		t.Fatalf("expected error when pool insert fails")
	}

	if len(led.credits) != 1 {
		t.Fatalf("credits = %d, want 1 rollback", len(led.credits))
	}
	c := led.credits[0]
	if c.userID != 5 || c.amount != 100 || !strings.HasPrefix(c.correlationID, "envelope-create-undo:") {
		t.Fatalf("unexpected rollback credit: %+v", c)
	}
}

func TestClaimCreditsClaimer(t *testing.T) {
	repo := &stubRepo{
		pool: &model.Pool{
			ID:              "p1",
			Kind:            model.PoolKindRandom,
			TotalAmount:     100,
			TotalCount:      3,
			RemainingAmount: 100,
			RemainingCount:  3,
			Status:          model.PoolStatusActive,
		},
	}
	led := &stubLedger{}
	svc := newTestService(repo, led)

	claim, err := svc.Claim(context.Background(), "p1", 9)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if claim.Amount < 1 || claim.Amount > 98 {
		t.Fatalf("claim amount %d out of [1, 98]", claim.Amount)
	}

	if len(led.credits) != 1 {
		t.Fatalf("credits = %d, want 1", len(led.credits))
	}
	c := led.credits[0]
	if c.userID != 9 || c.amount != claim.Amount || c.correlationID != "envelope:p1:9" {
		t.Fatalf("unexpected claim credit: %+v", c)
	}
}

func TestClaimAverageKind(t *testing.T) {
	repo := &stubRepo{
		pool: &model.Pool{
			ID:              "p2",
			Kind:            model.PoolKindAverage,
			TotalAmount:     10,
			TotalCount:      3,
			RemainingAmount: 10,
			RemainingCount:  3,
			Status:          model.PoolStatusActive,
		},
	}
	svc := newTestService(repo, &stubLedger{})

	claim, err := svc.Claim(context.Background(), "p2", 9)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claim.Amount != 4 {
		t.Fatalf("first average share = %d, want 4", claim.Amount)
	}
}

func TestClaimAlreadyClaimedRedeliversCredit(t *testing.T) {
	repo := &stubRepo{
		claimErr: repository.ErrAlreadyClaimed,
		claim:    &model.ClaimEntry{PoolID: "p1", UserID: 9, Amount: 17},
	}
	led := &stubLedger{}
	svc := newTestService(repo, led)

	_, err := svc.Claim(context.Background(), "p1", 9)
	if !errors.Is(err, repository.ErrAlreadyClaimed) {
		t.Fatalf("got %v, want ErrAlreadyClaimed", err)
	}

	// Зачисление дослано по существующей доле.
	if len(led.credits) != 1 {
		t.Fatalf("credits = %d, want 1 redelivery", len(led.credits))
	}
	if led.credits[0].amount != 17 || led.credits[0].correlationID != "envelope:p1:9" {
		t.Fatalf("unexpected redelivered credit: %+v", led.credits[0])
	}
}

func TestClaimOverduePoolLeavesRefundToSweeper(t *testing.T) {
	repo := &stubRepo{
		pool: &model.Pool{
			ID:              "p3",
			CreatorID:       3,
			Kind:            model.PoolKindRandom,
			TotalAmount:     50,
			TotalCount:      2,
			RemainingAmount: 50,
			RemainingCount:  2,
			Status:          model.PoolStatusActive,
			ExpiresAt:       time.Now().Add(-time.Minute),
		},
	}
	led := &stubLedger{}
	svc := newTestService(repo, led)

	_, err := svc.Claim(context.Background(), "p3", 9)
	if !errors.Is(err, repository.ErrPoolExpired) {
		t.Fatalf("got %v, want ErrPoolExpired", err)
	}
	// Отказ в выдаче не переводит конверт в EXPIRED: иначе уборка его
	// не увидит и остаток никогда не вернётся создателю.
	if repo.pool.Status != model.PoolStatusActive {
		t.Fatalf("pool status after rejected claim = %s, want ACTIVE", repo.pool.Status)
	}
	if len(led.credits) != 0 {
		t.Fatalf("credits = %d, want none before sweep", len(led.credits))
	}

	svc.sweepExpired(context.Background())

	if repo.pool.Status != model.PoolStatusExpired {
		t.Fatalf("pool status after sweep = %s, want EXPIRED", repo.pool.Status)
	}
	if len(led.credits) != 1 {
		t.Fatalf("credits = %d, want 1 refund", len(led.credits))
	}
	c := led.credits[0]
	if c.userID != 3 || c.amount != 50 || c.correlationID != "envelope-refund:p3" {
		t.Fatalf("unexpected refund: %+v", c)
	}
}

func TestSweepRefundsCreators(t *testing.T) {
	repo := &stubRepo{
		expired: []model.Pool{
			{ID: "p1", CreatorID: 3, RemainingAmount: 40, RemainingCount: 2},
			{ID: "p2", CreatorID: 4, RemainingAmount: 0, RemainingCount: 0},
		},
	}
	led := &stubLedger{}
	svc := newTestService(repo, led)

	svc.sweepExpired(context.Background())

	if len(led.credits) != 1 {
		t.Fatalf("credits = %d, want 1 refund", len(led.credits))
	}
	c := led.credits[0]
	if c.userID != 3 || c.amount != 40 || c.correlationID != "envelope-refund:p1" {
		t.Fatalf("unexpected refund: %+v", c)
	}
}
