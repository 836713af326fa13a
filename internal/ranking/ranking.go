// Package ranking строит таблицу лидеров по балансам баллов.
// Чистый путь чтения: никаких блокировок, разделяемых с журналом.
package ranking

import (
	"context"
	"fmt"

	"github.com/avdeyev/score-ledger-system/internal/model"
)

// Repository описывает запросы чтения, используемые таблицей лидеров.
type Repository interface {
	TopBalances(ctx context.Context, n int) ([]model.RankedBalance, error)
	RankOfUser(ctx context.Context, userID int64) (int64, error)
}

// Row — строка таблицы лидеров. Пользователи с равными баллами делят место.
type Row struct {
	Rank        int64
	UserID      int64
	TotalPoints int64
}

// View предоставляет доступ к таблице лидеров.
type View struct {
	repo Repository
}

// NewView создаёт представление таблицы лидеров.
func NewView(repo Repository) *View {
	return &View{repo: repo}
}

// TopN возвращает первые n строк. Сортировка: по убыванию баллов, при
// равенстве — раньше тот, кто достиг результата раньше. Место считается
// как 1 + число пользователей со строго большим результатом, поэтому
// равные баллы дают равное место.
func (v *View) TopN(ctx context.Context, n int) ([]Row, error) {
	if n <= 0 {
		return nil, nil
	}

	balances, err := v.repo.TopBalances(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("top balances: %w", err)
	}

	rows := make([]Row, 0, len(balances))
	for i, b := range balances {
		rank := int64(i + 1)
		if i > 0 && b.TotalPoints == balances[i-1].TotalPoints {
			rank = rows[i-1].Rank
		}
		rows = append(rows, Row{
			Rank:        rank,
			UserID:      b.UserID,
			TotalPoints: b.TotalPoints,
		})
	}

	return rows, nil
}

// RankOf возвращает место пользователя. Для пользователя без записи
// баланса возвращается ошибка repository.ErrBalanceNotFound.
func (v *View) RankOf(ctx context.Context, userID int64) (int64, error) {
	return v.repo.RankOfUser(ctx, userID)
}
