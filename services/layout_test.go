package services

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositions_Deterministic(t *testing.T) {
	for _, seed := range []string{"ABC123", "room-seed", "x", ""} {
		first := Positions(seed, 50)
		second := Positions(seed, 50)
		require.Equal(t, first, second, "seed %q must replay identically", seed)
	}
}

func TestPositions_DifferentSeedsDiffer(t *testing.T) {
	a := Positions("AAAAAA", 25)
	b := Positions("BBBBBB", 25)
	assert.NotEqual(t, a, b)
}

func TestPositions_CountAndBounds(t *testing.T) {
	for _, count := range []int{1, 2, 9, 10, 25, 26, 50, 81, 100} {
		positions := Positions("SEED42", count)
		require.Len(t, positions, count, "count %d", count)

		for i, p := range positions {
			assert.Equal(t, i+1, p.Number)
			assert.GreaterOrEqual(t, p.X, layoutPadding)
			assert.LessOrEqual(t, p.X, 100-layoutPadding)
			assert.GreaterOrEqual(t, p.Y, layoutPadding)
			assert.LessOrEqual(t, p.Y, 100-layoutPadding)
			assert.GreaterOrEqual(t, p.Rotation, -layoutMaxRotate)
			assert.LessOrEqual(t, p.Rotation, layoutMaxRotate)
		}
	}
}

func TestPositions_NoSharedGridCell(t *testing.T) {
	for _, count := range []int{9, 10, 64, 100} {
		positions := Positions("DENSE1", count)
		gridSize := int(math.Ceil(math.Sqrt(float64(count))))
		cellWidth := 100.0 / float64(gridSize)

		seen := make(map[[2]int]int)
		for _, p := range positions {
			cell := [2]int{int(p.X / cellWidth), int(p.Y / cellWidth)}
			if prev, taken := seen[cell]; taken {
				t.Fatalf("count %d: numbers %d and %d share grid cell %v", count, prev, p.Number, cell)
			}
			seen[cell] = p.Number
		}
	}
}

func TestPositions_SingleNumber(t *testing.T) {
	positions := Positions("ONE", 1)
	require.Len(t, positions, 1)
	assert.Equal(t, 1, positions[0].Number)
}

func TestPositions_ZeroCount(t *testing.T) {
	assert.Empty(t, Positions("EMPTY", 0))
}

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateRoomCode()
		require.Len(t, code, roomCodeLength)
		for _, ch := range code {
			assert.True(t, strings.ContainsRune(roomCodeAlphabet, ch), "unexpected glyph %q in %s", ch, code)
		}
		seen[code] = true
	}
	// 100 draws from a 32^6 space colliding down to a handful would mean
	// the generator is broken.
	assert.Greater(t, len(seen), 90)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00.00", FormatElapsed(0))
	assert.Equal(t, "00:01.50", FormatElapsed(1500*time.Millisecond))
	assert.Equal(t, "01:23.45", FormatElapsed(83450*time.Millisecond))
	assert.Equal(t, "10:00.00", FormatElapsed(10*time.Minute))
	assert.Equal(t, "00:00.00", FormatElapsed(-time.Second))
}
