package game

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// queueSource replays a fixed list of uniform draws.
type queueSource struct {
	vals []float64
	i    int
}

func (q *queueSource) Float64() float64 {
	v := q.vals[q.i%len(q.vals)]
	q.i++
	return v
}

func TestDefaultTablesSumToOne(t *testing.T) {
	one := decimal.NewFromInt(1)

	sum := sumWeights(DefaultTierWeights(), func(tw TierWeight) decimal.Decimal { return tw.Probability })
	if !sum.Equal(one) {
		t.Errorf("rarity table sums to %s, want 1", sum)
	}

	sum = sumWeights(DefaultWearWeights(), func(w WearWeight) decimal.Decimal { return w.Probability })
	if !sum.Equal(one) {
		t.Errorf("wear table sums to %s, want 1", sum)
	}
}

func TestDrawRarityBoundaryIsExclusive(t *testing.T) {
	// two-tier table: a draw landing exactly on the 0.7 threshold must
	// resolve to the second tier
	tiers := []TierWeight{
		{Tier: RarityBlue, Probability: decimal.NewFromFloat(0.7)},
		{Tier: RarityGold, Probability: decimal.NewFromFloat(0.3)},
	}
	tests := []struct {
		draw float64
		want RarityTier
	}{
		{0.0, RarityBlue},
		{0.69999, RarityBlue},
		{0.7, RarityGold},
		{0.99999, RarityGold},
	}
	for _, tt := range tests {
		m := NewModel(tiers, DefaultWearWeights(), &queueSource{vals: []float64{tt.draw}}, zerolog.Nop())
		if got := m.DrawRarity(); got != tt.want {
			t.Errorf("draw %v: got %s, want %s", tt.draw, got, tt.want)
		}
	}
}

func TestDrawRarityDistribution(t *testing.T) {
	const n = 100000
	m := DefaultModel(NewSeededSource(42), zerolog.Nop())

	counts := map[RarityTier]int{}
	for i := 0; i < n; i++ {
		counts[m.DrawRarity()]++
	}

	for _, tw := range m.Tiers() {
		want := tw.Probability.InexactFloat64()
		got := float64(counts[tw.Tier]) / n
		if diff := got - want; diff > 0.01 || diff < -0.01 {
			t.Errorf("tier %s: frequency %.4f not within 1%% of %.4f", tw.Tier, got, want)
		}
	}
}

func TestWearRoundTrip(t *testing.T) {
	m := DefaultModel(NewSeededSource(7), zerolog.Nop())
	levels := []WearLevel{WearFactoryNew, WearMinimalWear, WearFieldTested, WearWellWorn, WearBattleScarred}

	for _, level := range levels {
		for i := 0; i < 1000; i++ {
			v := m.GenerateWearValue(level)
			if v < 0 || v >= 1 {
				t.Fatalf("wear value %v out of [0,1)", v)
			}
			if got := m.WearLevelFromValue(v); got != level {
				t.Fatalf("round trip for %s: value %v mapped to %s", level, v, got)
			}
		}
	}
}

func TestWearLevelFromValueEdge(t *testing.T) {
	m := DefaultModel(nil, zerolog.Nop())
	// values at or past the top boundary resolve to the highest-wear band
	if got := m.WearLevelFromValue(1.0); got != WearBattleScarred {
		t.Errorf("value 1.0: got %s, want %s", got, WearBattleScarred)
	}
	if got := m.WearLevelFromValue(0.0); got != WearFactoryNew {
		t.Errorf("value 0.0: got %s, want %s", got, WearFactoryNew)
	}
}

func TestRarityProbabilityLookup(t *testing.T) {
	m := DefaultModel(nil, zerolog.Nop())
	if got := m.RarityProbability(RarityGold); !got.Equal(decimal.NewFromFloat(0.005)) {
		t.Errorf("gold probability: got %s", got)
	}
	if got := m.RarityProbability(RarityTier("unknown")); !got.IsZero() {
		t.Errorf("unknown tier probability: got %s, want 0", got)
	}
}
