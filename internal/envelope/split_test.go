package envelope

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avdeyev/score-ledger-system/internal/model"
)

func TestNextShareLastClaimantTakesRemainder(t *testing.T) {
	a := NewAllocator()

	if got := a.NextShare(37, 1); got != 37 {
		t.Fatalf("last share = %d, want 37", got)
	}
	if got := a.NextShare(1, 1); got != 1 {
		t.Fatalf("last share = %d, want 1", got)
	}
}

func TestNextShareClampsHighDraw(t *testing.T) {
	// Источник всегда выдаёт максимум диапазона.
	a := NewAllocatorWithRand(func(n int64) int64 { return n - 1 })

	// remaining=4, count=2: maxShare=4, но оставшемуся нужен минимум 1.
	if got := a.NextShare(4, 2); got != 3 {
		t.Fatalf("clamped share = %d, want 3", got)
	}

	// remaining == count: каждому ровно по единице.
	if got := a.NextShare(3, 3); got != 1 {
		t.Fatalf("tight pool share = %d, want 1", got)
	}
}

func TestNextShareMinimumOne(t *testing.T) {
	a := NewAllocatorWithRand(func(n int64) int64 { return 0 })

	if got := a.NextShare(100, 5); got != 1 {
		t.Fatalf("minimum share = %d, want 1", got)
	}
}

func TestSequentialClaimsPreserveInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	a := NewAllocatorWithRand(r.Int63n)

	for trial := 0; trial < 500; trial++ {
		count := 1 + r.Int63n(20)
		amount := count + r.Int63n(500)

		remAmount, remCount := amount, count
		var sum int64

		for remCount > 0 {
			share := a.NextShare(remAmount, remCount)

			require.GreaterOrEqual(t, share, int64(1),
				"share below 1 unit (remaining %d/%d)", remAmount, remCount)
			require.LessOrEqual(t, share, remAmount-(remCount-1),
				"share starves remaining claimants (remaining %d/%d)", remAmount, remCount)

			remAmount -= share
			remCount--
			sum += share

			if remCount > 0 {
				require.GreaterOrEqual(t, remAmount, remCount,
					"pool invariant broken after claim")
			}
		}

		require.Equal(t, amount, sum, "claims must sum to the pool total")
		require.Zero(t, remAmount, "no units may be left over")
	}
}

func TestAverageShare(t *testing.T) {
	tests := []struct {
		name        string
		totalAmount int64
		totalCount  int64
		want        []int64
	}{
		{
			name:        "remainder goes to the first claimant",
			totalAmount: 10,
			totalCount:  3,
			want:        []int64{4, 3, 3},
		},
		{
			name:        "even split",
			totalAmount: 12,
			totalCount:  4,
			want:        []int64{3, 3, 3, 3},
		},
		{
			name:        "single claimant",
			totalAmount: 9,
			totalCount:  1,
			want:        []int64{9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rem := tt.totalAmount
			remCount := tt.totalCount

			var got []int64
			for remCount > 0 {
				pool := &model.Pool{
					TotalAmount:     tt.totalAmount,
					TotalCount:      tt.totalCount,
					RemainingAmount: rem,
					RemainingCount:  remCount,
				}
				share := AverageShare(pool)
				got = append(got, share)
				rem -= share
				remCount--
			}

			require.Equal(t, tt.want, got)
			require.Zero(t, rem)
		})
	}
}
