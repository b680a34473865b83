package services

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"
)

// NumberPosition places one number on the shared board. X and Y are
// percentages of the board size, Rotation is in degrees.
type NumberPosition struct {
	Number   int     `json:"number"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

const (
	layoutPadding   = 6.0  // percent kept clear at every edge
	layoutJitter    = 0.25 // fraction of a grid cell a number may drift
	layoutMaxRotate = 15.0 // degrees either way
)

// seededStream is a deterministic pseudo-random stream derived from a
// string seed. Every client regenerates the board locally, so the stream
// has to produce the same bits for the same seed on every platform; plain
// 32-bit integer arithmetic guarantees that where float transcendentals
// would not.
type seededStream struct {
	state uint32
}

func newSeededStream(seed string) *seededStream {
	var hash int32
	for _, ch := range seed {
		hash = (hash << 5) - hash + int32(ch)
	}
	return &seededStream{state: uint32(hash)}
}

// next returns a value in [0, 1).
func (s *seededStream) next() float64 {
	s.state = s.state*1664525 + 1013904223
	return float64(s.state>>8) / float64(1<<24)
}

// Positions computes the scattered board layout for numbers 1..count.
// It is a pure function of (seed, count): the grid cells are shuffled with
// a seeded Fisher-Yates so the reading order is not obvious, then each
// number is jittered inside its own cell. Two numbers can never land in
// the same cell, so dense boards stay tap-able.
func Positions(seed string, count int) []NumberPosition {
	if count < 1 {
		return nil
	}

	stream := newSeededStream(seed)
	gridSize := int(math.Ceil(math.Sqrt(float64(count))))
	cellWidth := 100.0 / float64(gridSize)
	cellHeight := 100.0 / float64(gridSize)

	type cell struct{ row, col int }
	cells := make([]cell, 0, gridSize*gridSize)
	for row := 0; row < gridSize; row++ {
		for col := 0; col < gridSize; col++ {
			cells = append(cells, cell{row: row, col: col})
		}
	}

	for i := len(cells) - 1; i > 0; i-- {
		j := int(stream.next() * float64(i+1))
		cells[i], cells[j] = cells[j], cells[i]
	}

	positions := make([]NumberPosition, 0, count)
	for n := 1; n <= count; n++ {
		c := cells[n-1]
		baseX := (float64(c.col) + 0.5) * cellWidth
		baseY := (float64(c.row) + 0.5) * cellHeight
		x := baseX + (stream.next()-0.5)*cellWidth*layoutJitter*2
		y := baseY + (stream.next()-0.5)*cellHeight*layoutJitter*2

		positions = append(positions, NumberPosition{
			Number:   n,
			X:        clamp(x, layoutPadding, 100-layoutPadding),
			Y:        clamp(y, layoutPadding, 100-layoutPadding),
			Rotation: (stream.next() - 0.5) * 2 * layoutMaxRotate,
		})
	}

	return positions
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roomCodeAlphabet omits glyphs that read ambiguously (0/O, 1/I).
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roomCodeLength = 6

// GenerateRoomCode returns a 6-character shareable room code.
func GenerateRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		if err != nil {
			panic(err)
		}
		code[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(code)
}

// FormatElapsed renders a game duration as mm:ss.cc for chat and the
// victory screen.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalSeconds := int(d / time.Second)
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60
	centis := int(d/time.Millisecond) % 1000 / 10
	return fmt.Sprintf("%02d:%02d.%02d", minutes, seconds, centis)
}
