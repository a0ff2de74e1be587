package valueobjects

// DefaultColor is the baseline tag used when a node carries no color.
const DefaultColor Color = "white"

// Color is a palette tag such as "white" or "blue"
type Color string

// ColorOrDefault returns the color for tag, falling back to DefaultColor when
// tag is empty.
func ColorOrDefault(tag string) Color {
	if tag == "" {
		return DefaultColor
	}
	return Color(tag)
}

// String returns the palette tag
func (c Color) String() string {
	return string(c)
}

// IsZero reports whether no tag is set
func (c Color) IsZero() bool {
	return c == ""
}
