// Package envelope реализует красные конверты: создание, выдачу долей
// и алгоритм справедливого случайного деления суммы.
package envelope

import (
	"math/rand"

	"github.com/avdeyev/score-ledger-system/internal/model"
)

// Allocator вычисляет размер очередной доли конверта.
// Источник случайности инжектируется для детерминированных тестов.
type Allocator struct {
	randInt func(n int64) int64
}

// NewAllocator создаёт аллокатор со стандартным источником случайности.
func NewAllocator() *Allocator {
	return &Allocator{randInt: rand.Int63n}
}

// NewAllocatorWithRand создаёт аллокатор с указанным источником случайности.
func NewAllocatorWithRand(randInt func(n int64) int64) *Allocator {
	return &Allocator{randInt: randInt}
}

// NextShare возвращает размер очередной случайной доли — метод «удвоенного
// среднего»: значение выбирается равномерно из [1, remaining/count*2] и
// прижимается так, чтобы каждому из оставшихся получателей гарантированно
// досталось не меньше одной единицы. Последний получатель забирает весь
// остаток. Математическое ожидание доли не зависит от порядка получения.
func (a *Allocator) NextShare(remainingAmount, remainingCount int64) int64 {
	if remainingCount <= 1 {
		return remainingAmount
	}

	maxShare := remainingAmount * 2 / remainingCount
	if maxShare < 1 {
		maxShare = 1
	}

	amount := 1 + a.randInt(maxShare)

	if limit := remainingAmount - (remainingCount - 1); amount > limit {
		amount = limit
	}

	return amount
}

// AverageShare возвращает размер доли при равном делении: floor(total/count),
// весь остаток от деления достаётся первому получателю.
func AverageShare(p *model.Pool) int64 {
	share := p.TotalAmount / p.TotalCount
	if p.RemainingCount == p.TotalCount {
		share += p.TotalAmount % p.TotalCount
	}
	return share
}
