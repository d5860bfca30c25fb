package rule_test

import (
	"testing"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/rule"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector[V int16 | int32 | int64] map[int]V

func (c collector[V]) emit(i int, amount V) { c[i] += amount }

func TestAether_SplitsWithSmallerNeighbors(t *testing.T) {
	a := &rule.Aether[int64]{}
	got := collector[int64]{}
	keep, toppled := a.Topple(1_000_000, []rule.Neighbor[int64]{{Value: 0, Symmetry: 4, Multiplier: 1}}, got.emit)
	assert.True(t, toppled)
	assert.Equal(t, int64(200000), keep)
	assert.Equal(t, collector[int64]{0: 200000}, got)
}

func TestAether_ZeroShareDoesNotStopLaterGroups(t *testing.T) {
	a := &rule.Aether[int32]{}
	got := collector[int32]{}
	neighbors := []rule.Neighbor[int32]{
		{Value: 0, Symmetry: 1, Multiplier: 1},
		{Value: 9, Symmetry: 1, Multiplier: 1},
	}
	keep, toppled := a.Topple(10, neighbors, got.emit)
	assert.True(t, toppled)
	assert.Equal(t, int32(5), keep)
	assert.Equal(t, collector[int32]{0: 5}, got)
}

func TestAether_GroupsEqualNeighbors(t *testing.T) {
	a := &rule.Aether[int64]{}
	got := collector[int64]{}
	neighbors := []rule.Neighbor[int64]{
		{Value: 40, Symmetry: 1, Multiplier: 1},
		{Value: 100, Symmetry: 1, Multiplier: 4},
		{Value: 40, Symmetry: 2, Multiplier: 2},
	}
	// both 40s form one group of symmetry 3: share 60/4
	keep, toppled := a.Topple(100, neighbors, got.emit)
	assert.True(t, toppled)
	assert.Equal(t, int64(55), keep)
	assert.Equal(t, collector[int64]{0: 15, 2: 30}, got)
}

func TestAether_NoSmallerNeighbors(t *testing.T) {
	a := &rule.Aether[int16]{}
	keep, toppled := a.Topple(3, []rule.Neighbor[int16]{{Value: 3, Symmetry: 2, Multiplier: 1}, {Value: 7, Symmetry: 2, Multiplier: 1}}, func(int, int16) {
		t.Fatal("unexpected emit")
	})
	assert.False(t, toppled)
	assert.Equal(t, int16(3), keep)
}

func TestSIV_EqualNeighborsReturnShares(t *testing.T) {
	s := rule.NewSIV[int64](2)
	got := collector[int64]{}
	neighbors := []rule.Neighbor[int64]{
		{Value: 12, Symmetry: 2, Multiplier: 2},
		{Value: 0, Symmetry: 2, Multiplier: 3},
	}
	keep, toppled := s.Topple(12, neighbors, got.emit)
	assert.True(t, toppled)
	assert.Equal(t, int64(12%5+2+2*2), keep)
	assert.Equal(t, collector[int64]{1: 6}, got)
}

func TestSIV_SmallOrUniformValuesStay(t *testing.T) {
	s := rule.NewSIV[int32](3)
	fail := func(int, int32) { t.Fatal("unexpected emit") }

	keep, toppled := s.Topple(-6, []rule.Neighbor[int32]{{Value: 0, Symmetry: 6, Multiplier: 1}}, fail)
	assert.False(t, toppled)
	assert.Equal(t, int32(-6), keep)

	keep, toppled = s.Topple(50, []rule.Neighbor[int32]{{Value: 50, Symmetry: 6, Multiplier: 1}}, fail)
	assert.False(t, toppled)
	assert.Equal(t, int32(50), keep)
}

func TestSIV_NegativeValuesTruncateTowardZero(t *testing.T) {
	s := rule.NewSIV[int16](1)
	got := collector[int16]{}
	keep, toppled := s.Topple(-7, []rule.Neighbor[int16]{{Value: 0, Symmetry: 2, Multiplier: 1}}, got.emit)
	assert.True(t, toppled)
	// share -2, remainder -1
	assert.Equal(t, int16(-3), keep)
	assert.Equal(t, collector[int16]{0: -2}, got)
}

func TestNewFactory(t *testing.T) {
	f, err := rule.NewFactory[int32](domain.VariantSIV, 2)
	require.NoError(t, err)
	assert.IsType(t, &rule.SIV[int32]{}, f())

	_, err = rule.NewFactory[int32]("sandpile", 2)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
