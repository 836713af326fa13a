// Package activity реализует дневные лимиты игровых активностей.
package activity

import (
	"context"
	"fmt"
	"time"
)

// Repository описывает атомарный счётчик активности в хранилище.
type Repository interface {
	ReserveDailySlot(ctx context.Context, userID int64, kind, statDate string, maxAllowed int) (bool, int, error)
	ReleaseDailySlot(ctx context.Context, userID int64, kind, statDate string) error
}

// Reservation описывает результат попытки занять слот активности.
type Reservation struct {
	Allowed      bool
	CurrentCount int
	Remaining    int
}

// Counter ограничивает число запусков активности на пользователя в день.
// Календарный день определяется в настроенном часовом поясе.
type Counter struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewCounter создаёт счётчик с указанным часовым поясом.
func NewCounter(repo Repository, loc *time.Location) *Counter {
	return &Counter{
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

// CheckAndReserve атомарно занимает один слот активности за сегодня.
// Если потолок maxAllowed уже достигнут, счётчик не меняется и
// возвращается Allowed=false. Из двух одновременных вызовов на последний
// свободный слот ровно один получает Allowed=true.
func (c *Counter) CheckAndReserve(ctx context.Context, userID int64, kind string, maxAllowed int) (*Reservation, error) {
	if maxAllowed <= 0 {
		return &Reservation{Allowed: false}, nil
	}

	day := c.now().In(c.loc).Format("2006-01-02")

	allowed, count, err := c.repo.ReserveDailySlot(ctx, userID, kind, day, maxAllowed)
	if err != nil {
		return nil, fmt.Errorf("reserve daily slot: %w", err)
	}

	remaining := maxAllowed - count
	if remaining < 0 {
		remaining = 0
	}

	return &Reservation{
		Allowed:      allowed,
		CurrentCount: count,
		Remaining:    remaining,
	}, nil
}

// Release возвращает слот, занятый CheckAndReserve, если операция,
// ради которой он занимался, не состоялась.
func (c *Counter) Release(ctx context.Context, userID int64, kind string) error {
	day := c.now().In(c.loc).Format("2006-01-02")

	if err := c.repo.ReleaseDailySlot(ctx, userID, kind, day); err != nil {
		return fmt.Errorf("release daily slot: %w", err)
	}
	return nil
}
