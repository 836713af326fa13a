// Package model содержит доменные сущности системы баллов.
package model

import "time"

// Balance представляет счёт баллов одного пользователя.
// TotalPoints никогда не опускается ниже нуля.
type Balance struct {
	UserID        int64
	TotalPoints   int64
	ActivityCount int64
	LastUpdated   time.Time
}

// Category описывает вид активности, породившей операцию по счёту.
type Category string

const (
	CategoryACReward Category = "AC_REWARD"
	CategoryCheckin  Category = "CHECKIN"
	CategoryLottery  Category = "LOTTERY"
	CategoryDice     Category = "DICE"
	CategoryRPS      Category = "RPS"
	CategoryTransfer Category = "TRANSFER"
	CategoryEnvelope Category = "ENVELOPE"
	CategoryAdjust   Category = "ADJUST"
)

// TransactionEntry описывает одно изменение баланса.
// Записи неизменяемы: корректировки выполняются встречными операциями.
type TransactionEntry struct {
	ID            int64
	UserID        int64
	Amount        int64
	Reason        string
	Category      Category
	CorrelationID string
	CreatedAt     time.Time
}

// DailyCounter хранит счётчик активности пользователя за календарный день.
type DailyCounter struct {
	UserID         int64
	ActivityKind   string
	StatDate       string
	PlayCount      int
	LastActivityAt time.Time
}

// PoolKind описывает способ деления красного конверта.
type PoolKind string

const (
	PoolKindRandom  PoolKind = "RANDOM"
	PoolKindAverage PoolKind = "AVERAGE"
)

// PoolStatus описывает состояние красного конверта.
type PoolStatus string

const (
	PoolStatusActive    PoolStatus = "ACTIVE"
	PoolStatusCompleted PoolStatus = "COMPLETED"
	PoolStatusExpired   PoolStatus = "EXPIRED"
)

// Pool представляет красный конверт: фиксированная сумма,
// делимая между фиксированным числом получателей.
// Инвариант: пока RemainingCount > 0, RemainingAmount >= RemainingCount.
type Pool struct {
	ID              string
	CreatorID       int64
	Kind            PoolKind
	Message         string
	TotalAmount     int64
	TotalCount      int64
	RemainingAmount int64
	RemainingCount  int64
	Status          PoolStatus
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// ClaimEntry фиксирует получение доли конверта пользователем.
// На пару (конверт, пользователь) допускается не более одной записи.
type ClaimEntry struct {
	PoolID    string
	UserID    int64
	Amount    int64
	ClaimedAt time.Time
}

// RankedBalance — строка таблицы лидеров.
type RankedBalance struct {
	UserID      int64
	TotalPoints int64
	LastUpdated time.Time
}
