package game

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RarityTier is a ranked cosmetic category assigned to a drawn entry.
// Order is ascending rarity (descending probability).
type RarityTier string

const (
	RarityBlue   RarityTier = "blue"
	RarityPurple RarityTier = "purple"
	RarityPink   RarityTier = "pink"
	RarityRed    RarityTier = "red"
	RarityGold   RarityTier = "gold"
)

// WearLevel buckets a wear value in [0, 1) into five named bands.
type WearLevel string

const (
	WearFactoryNew    WearLevel = "factory-new"
	WearMinimalWear   WearLevel = "minimal-wear"
	WearFieldTested   WearLevel = "field-tested"
	WearWellWorn      WearLevel = "well-worn"
	WearBattleScarred WearLevel = "battle-scarred"
)

// TierWeight is one configured rarity entry. Probabilities are configured
// as decimals so the startup sum check is exact.
type TierWeight struct {
	Tier        RarityTier      `mapstructure:"tier" json:"tier"`
	Probability decimal.Decimal `mapstructure:"probability" json:"probability"`
}

// WearWeight is one configured wear-level entry with its value band.
type WearWeight struct {
	Level       WearLevel       `mapstructure:"level" json:"level"`
	Probability decimal.Decimal `mapstructure:"probability" json:"probability"`
	Min         float64         `mapstructure:"min" json:"min"`
	Max         float64         `mapstructure:"max" json:"max"`
}

// DefaultTierWeights is the stock rarity table.
func DefaultTierWeights() []TierWeight {
	return []TierWeight{
		{Tier: RarityBlue, Probability: decimal.NewFromFloat(0.70)},
		{Tier: RarityPurple, Probability: decimal.NewFromFloat(0.18)},
		{Tier: RarityPink, Probability: decimal.NewFromFloat(0.08)},
		{Tier: RarityRed, Probability: decimal.NewFromFloat(0.035)},
		{Tier: RarityGold, Probability: decimal.NewFromFloat(0.005)},
	}
}

// DefaultWearWeights is the stock wear table. Bands are half-open
// intervals covering [0, 1).
func DefaultWearWeights() []WearWeight {
	return []WearWeight{
		{Level: WearFactoryNew, Probability: decimal.NewFromFloat(0.15), Min: 0.00, Max: 0.07},
		{Level: WearMinimalWear, Probability: decimal.NewFromFloat(0.25), Min: 0.07, Max: 0.15},
		{Level: WearFieldTested, Probability: decimal.NewFromFloat(0.35), Min: 0.15, Max: 0.38},
		{Level: WearWellWorn, Probability: decimal.NewFromFloat(0.20), Min: 0.38, Max: 0.45},
		{Level: WearBattleScarred, Probability: decimal.NewFromFloat(0.05), Min: 0.45, Max: 1.00},
	}
}

// sumTolerance is the allowed deviation of a probability table from 1.0.
var sumTolerance = decimal.NewFromFloat(1e-3)

// Model samples rarity tiers and wear values from cumulative probability
// tables. A malformed table is a configuration problem: it is reported once
// as a warning at construction and the table is used as configured, never
// renormalized.
type Model struct {
	tiers     []TierWeight
	wears     []WearWeight
	rarityCum []float64
	wearCum   []float64
	rng       RandomSource
}

// NewModel builds a Model from the given tables. rng may be nil, in which
// case the crypto-backed default is used.
func NewModel(tiers []TierWeight, wears []WearWeight, rng RandomSource, logger zerolog.Logger) *Model {
	if rng == nil {
		rng = DefaultRandomSource()
	}
	if len(tiers) == 0 {
		tiers = DefaultTierWeights()
	}
	if len(wears) == 0 {
		wears = DefaultWearWeights()
	}

	validateTable(logger, "rarity", sumWeights(tiers, func(t TierWeight) decimal.Decimal { return t.Probability }))
	validateTable(logger, "wear", sumWeights(wears, func(w WearWeight) decimal.Decimal { return w.Probability }))

	m := &Model{
		tiers: tiers,
		wears: wears,
		rng:   rng,
	}
	m.rarityCum = cumulative(tiers, func(t TierWeight) decimal.Decimal { return t.Probability })
	m.wearCum = cumulative(wears, func(w WearWeight) decimal.Decimal { return w.Probability })
	return m
}

// DefaultModel builds a Model from the stock tables.
func DefaultModel(rng RandomSource, logger zerolog.Logger) *Model {
	return NewModel(DefaultTierWeights(), DefaultWearWeights(), rng, logger)
}

func sumWeights[T any](entries []T, prob func(T) decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(prob(e))
	}
	return sum
}

func cumulative[T any](entries []T, prob func(T) decimal.Decimal) []float64 {
	cum := make([]float64, len(entries))
	running := decimal.Zero
	for i, e := range entries {
		running = running.Add(prob(e))
		cum[i] = running.InexactFloat64()
	}
	return cum
}

func validateTable(logger zerolog.Logger, name string, sum decimal.Decimal) {
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(sumTolerance) {
		logger.Warn().
			Str("table", name).
			Str("sum", sum.String()).
			Msg("probability table does not sum to 1; drawing with configured values as-is")
	}
}

// DrawRarity samples a rarity tier. The scan is strict-less-than: a draw
// landing exactly on a cumulative threshold resolves to the next tier. The
// last tier is the fallback for floating point residue at the top boundary.
func (m *Model) DrawRarity() RarityTier {
	r := m.rng.Float64()
	for i, cum := range m.rarityCum {
		if r < cum {
			return m.tiers[i].Tier
		}
	}
	return m.tiers[len(m.tiers)-1].Tier
}

// DrawWearLevel samples a wear level from the wear probability table.
func (m *Model) DrawWearLevel() WearLevel {
	r := m.rng.Float64()
	for i, cum := range m.wearCum {
		if r < cum {
			return m.wears[i].Level
		}
	}
	return m.wears[len(m.wears)-1].Level
}

// GenerateWearValue draws a uniform value within the level's band. An
// unknown level falls back to the full [0, 1) range.
func (m *Model) GenerateWearValue(level WearLevel) float64 {
	for _, w := range m.wears {
		if w.Level == level {
			return w.Min + m.rng.Float64()*(w.Max-w.Min)
		}
	}
	return m.rng.Float64()
}

// WearLevelFromValue is the inverse band lookup. Values outside every band
// (v >= 1 after floating point drift) resolve to the highest-wear level.
func (m *Model) WearLevelFromValue(v float64) WearLevel {
	for _, w := range m.wears {
		if v >= w.Min && v < w.Max {
			return w.Level
		}
	}
	return m.wears[len(m.wears)-1].Level
}

// RarityProbability returns the configured probability of a tier, zero if
// the tier is not in the table.
func (m *Model) RarityProbability(tier RarityTier) decimal.Decimal {
	for _, t := range m.tiers {
		if t.Tier == tier {
			return t.Probability
		}
	}
	return decimal.Zero
}

// WearProbability returns the configured probability of a wear level.
func (m *Model) WearProbability(level WearLevel) decimal.Decimal {
	for _, w := range m.wears {
		if w.Level == level {
			return w.Probability
		}
	}
	return decimal.Zero
}

// Tiers returns the configured rarity table in order.
func (m *Model) Tiers() []TierWeight {
	out := make([]TierWeight, len(m.tiers))
	copy(out, m.tiers)
	return out
}

// Wears returns the configured wear table in order.
func (m *Model) Wears() []WearWeight {
	out := make([]WearWeight, len(m.wears))
	copy(out, m.wears)
	return out
}
