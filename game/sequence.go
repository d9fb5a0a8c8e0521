package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// fillerStrides are the candidate steps for walking the filler name pool.
// A stride coprime with the pool size visits every name before repeating,
// which keeps consecutive tiles distinct.
var fillerStrides = []int{7, 11, 13, 17, 19, 23}

// SequenceBuilder constructs the ordered reel tile list for one animation
// run. The true result is always the last tile; everything before it is
// filler with independently sampled cosmetic rarity.
type SequenceBuilder struct {
	model *Model
	rng   RandomSource
}

// NewSequenceBuilder wires the builder. rng may be nil for the crypto
// default.
func NewSequenceBuilder(model *Model, rng RandomSource) *SequenceBuilder {
	if rng == nil {
		rng = DefaultRandomSource()
	}
	return &SequenceBuilder{model: model, rng: rng}
}

// Build returns fillerCount(speed) filler tiles followed by the target
// tile. Filler names are drawn from the roster excluding the target name
// where feasible, sampled with a random start offset and a stride through
// the pool so no two adjacent tiles share a name when the roster has two or
// more distinct names. Tile ids are unique within the sequence.
func (b *SequenceBuilder) Build(result RollResult, roster []Student, speed Speed) []ReelTile {
	fillers := speed.FillerCount()
	tiles := make([]ReelTile, 0, fillers+1)

	pool := b.fillerNamePool(result.Name, roster)
	if len(pool) > 0 {
		start := intn(b.rng, len(pool))
		stride := b.pickStride(len(pool))
		idx := start
		prev := ""
		for i := 0; i < fillers; i++ {
			name := pool[idx%len(pool)]
			if name == prev && len(pool) > 1 {
				idx++
				name = pool[idx%len(pool)]
			}
			tiles = append(tiles, ReelTile{
				ID:     b.tileID(name, roster, i),
				Name:   name,
				Rarity: b.model.DrawRarity(),
			})
			prev = name
			idx += stride
		}
	}

	tiles = append(tiles, ReelTile{
		ID:     fmt.Sprintf("%s-target", result.StudentID),
		Name:   result.Name,
		Rarity: result.Rarity,
	})
	return tiles
}

// fillerNamePool returns the candidate filler names: every distinct roster
// name except the target's, or just the target name when the roster has no
// alternative.
func (b *SequenceBuilder) fillerNamePool(targetName string, roster []Student) []string {
	names := lo.Uniq(lo.Map(roster, func(s Student, _ int) string { return s.Name }))
	pool := lo.Without(names, targetName)
	if len(pool) == 0 {
		if targetName == "" {
			return nil
		}
		return []string{targetName}
	}
	return pool
}

// pickStride chooses a stride coprime with the pool size so the walk wraps
// through the whole pool.
func (b *SequenceBuilder) pickStride(poolSize int) int {
	if poolSize <= 1 {
		return 1
	}
	stride := fillerStrides[intn(b.rng, len(fillerStrides))]
	for gcd(stride, poolSize) != 1 {
		stride++
	}
	return stride
}

// tileID derives a stable id from the roster when the name resolves to a
// student, else a synthetic filler id. The position suffix keeps ids unique
// when the same name appears more than once in a sequence.
func (b *SequenceBuilder) tileID(name string, roster []Student, position int) string {
	if s, ok := lo.Find(roster, func(s Student) bool { return s.Name == name }); ok {
		return fmt.Sprintf("%s-%d", s.ID, position)
	}
	return fmt.Sprintf("filler-%s-%d", uuid.New().String()[:8], position)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
