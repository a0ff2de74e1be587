package valueobjects

import (
	"errors"
	"math"
)

// Position is a point on the map canvas
type Position struct {
	x float64
	y float64
}

// NewPosition creates a position, rejecting NaN and infinite coordinates.
// Negative zero is stored as zero.
func NewPosition(x, y float64) (Position, error) {
	if !isFinite(x) || !isFinite(y) {
		return Position{}, errors.New("invalid coordinates: must be finite numbers")
	}
	return Position{x: NormalizeZero(x), y: NormalizeZero(y)}, nil
}

// X returns the horizontal coordinate
func (p Position) X() float64 {
	return p.x
}

// Y returns the vertical coordinate
func (p Position) Y() float64 {
	return p.y
}

// Equals reports exact coordinate equality. No tolerance is applied: a
// position that moved by any amount is a different position.
func (p Position) Equals(other Position) bool {
	return p.x == other.x && p.y == other.y
}

// Translate returns the position shifted by dx, dy
func (p Position) Translate(dx, dy float64) (Position, error) {
	return NewPosition(p.x+dx, p.y+dy)
}

// NormalizeZero maps -0 to 0 and returns any other value unchanged
func NormalizeZero(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
