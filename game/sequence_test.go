package game

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

func testRoster(names ...string) []Student {
	return lo.Map(names, func(n string, i int) Student {
		return Student{ID: "s" + n, Name: n}
	})
}

func TestBuildTargetIsLast(t *testing.T) {
	rng := NewSeededSource(1)
	b := NewSequenceBuilder(DefaultModel(rng, zerolog.Nop()), rng)
	roster := testRoster("A", "B", "C", "D")
	result := RollResult{StudentID: "sB", Name: "B", Rarity: RarityGold}

	for _, speed := range []Speed{SpeedFast, SpeedNormal, SpeedSlow} {
		seq := b.Build(result, roster, speed)
		if len(seq) != speed.FillerCount()+1 {
			t.Errorf("speed %s: len %d, want %d", speed, len(seq), speed.FillerCount()+1)
		}
		last := seq[len(seq)-1]
		if last.Name != result.Name || last.Rarity != result.Rarity {
			t.Errorf("speed %s: last tile %+v does not carry the true result", speed, last)
		}
	}
}

func TestBuildNoAdjacentDuplicates(t *testing.T) {
	rng := NewSeededSource(17)
	b := NewSequenceBuilder(DefaultModel(rng, zerolog.Nop()), rng)
	roster := testRoster("A", "B", "C", "D", "E")
	result := RollResult{StudentID: "sC", Name: "C", Rarity: RarityBlue}

	for seed := int64(0); seed < 50; seed++ {
		seq := b.Build(result, roster, SpeedSlow)
		for i := 1; i < len(seq); i++ {
			if seq[i].Name == seq[i-1].Name {
				t.Fatalf("adjacent duplicate %q at %d: %v", seq[i].Name, i,
					lo.Map(seq, func(tile ReelTile, _ int) string { return tile.Name }))
			}
		}
	}
}

func TestBuildFillersExcludeTarget(t *testing.T) {
	rng := NewSeededSource(3)
	b := NewSequenceBuilder(DefaultModel(rng, zerolog.Nop()), rng)
	roster := testRoster("A", "B", "C")
	result := RollResult{StudentID: "sA", Name: "A", Rarity: RarityRed}

	seq := b.Build(result, roster, SpeedNormal)
	for _, tile := range seq[:len(seq)-1] {
		if tile.Name == "A" {
			t.Errorf("filler carries the target name %q", tile.Name)
		}
	}
}

func TestBuildSingletonRoster(t *testing.T) {
	rng := NewSeededSource(5)
	b := NewSequenceBuilder(DefaultModel(rng, zerolog.Nop()), rng)
	roster := testRoster("A")
	result := RollResult{StudentID: "sA", Name: "A", Rarity: RarityBlue}

	seq := b.Build(result, roster, SpeedFast)
	if len(seq) != SpeedFast.FillerCount()+1 {
		t.Fatalf("len %d, want %d", len(seq), SpeedFast.FillerCount()+1)
	}
	// with a single name, fillers can only repeat the target
	for _, tile := range seq {
		if tile.Name != "A" {
			t.Errorf("unexpected filler name %q", tile.Name)
		}
	}
}

func TestBuildEmptyRoster(t *testing.T) {
	rng := NewSeededSource(5)
	b := NewSequenceBuilder(DefaultModel(rng, zerolog.Nop()), rng)
	result := RollResult{StudentID: "sA", Name: "A", Rarity: RarityBlue}

	// empty roster: the target name is the only filler source
	seq := b.Build(result, nil, SpeedFast)
	if len(seq) != SpeedFast.FillerCount()+1 {
		t.Fatalf("len %d, want %d", len(seq), SpeedFast.FillerCount()+1)
	}
	for _, tile := range seq {
		if tile.Name != "A" {
			t.Errorf("unexpected filler name %q", tile.Name)
		}
	}

	// no roster and no target name: sequence degrades to the target tile
	seq = b.Build(RollResult{StudentID: "sX"}, nil, SpeedFast)
	if len(seq) != 1 {
		t.Fatalf("len %d, want 1", len(seq))
	}
}

func TestBuildUniqueTileIDs(t *testing.T) {
	rng := NewSeededSource(23)
	b := NewSequenceBuilder(DefaultModel(rng, zerolog.Nop()), rng)
	roster := testRoster("A", "B")
	result := RollResult{StudentID: "sB", Name: "B", Rarity: RarityPink}

	seq := b.Build(result, roster, SpeedSlow)
	ids := lo.Map(seq, func(tile ReelTile, _ int) string { return tile.ID })
	if len(lo.Uniq(ids)) != len(ids) {
		t.Errorf("tile ids not unique: %v", ids)
	}
}
