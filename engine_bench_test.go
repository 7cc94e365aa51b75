package lit

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func BenchmarkCreateOrder(b *testing.B) {
	engine := newOpenEngine()

	// Use fixed seed for repeatability
	rng := rand.New(rand.NewSource(42))
	midTick := int64(1000000) // 10000.00 at the default 0.01 granularity

	// Pre-compute decimal prices to reduce allocations in hot loop:
	// 500 ticks per side around the mid.
	priceCache := make([]decimal.Decimal, 1001)
	for i := int64(0); i <= 1000; i++ {
		priceCache[i] = decimal.NewFromInt(midTick - 500 + i).Mul(DefaultTickSize)
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		var priceIdx int
		side := Buy

		// 80/20 distribution: most flow lands in the top 10 ticks.
		r := rng.Intn(100)
		sideR := rng.Intn(2)
		if r < 80 {
			offset := rng.Intn(10) + 1
			if sideR == 0 {
				priceIdx = 500 - offset
			} else {
				side = Sell
				priceIdx = 500 + offset
			}
		} else {
			offset := rng.Intn(490) + 11
			if sideR == 0 {
				priceIdx = 500 - offset
			} else {
				side = Sell
				priceIdx = 500 + offset
			}
		}

		_, _, _ = engine.CreateOrder(priceCache[priceIdx], 1, side, int64(i), Limit)
	}
}

func BenchmarkCreateAndCancel(b *testing.B) {
	engine := NewLitEngine(1001)
	price := decimal.RequireFromString("10.00")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		id, _, _ := engine.CreateOrder(price, 1, Buy, int64(i), Limit)
		_ = engine.CancelOrder(id, Buy)
	}
}

func BenchmarkMatchCrossingFlow(b *testing.B) {
	engine := newOpenEngine()
	price := decimal.RequireFromString("10.00")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		// Each pair produces exactly one full fill on both sides.
		_, _, _ = engine.CreateOrder(price, 1, Buy, 1, Limit)
		_, _, _ = engine.CreateOrder(price, 1, Sell, 2, Limit)
	}
}
