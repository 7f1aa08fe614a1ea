package domain

type Color int

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

func (c Color) Title() string {
	if c == Black {
		return "Black"
	}
	return "White"
}

func (c Color) Opposite() Color {
	if c == Black {
		return White
	}
	return Black
}

// ColorOf maps the "am I white" flag to a color.
func ColorOf(isWhite bool) Color {
	if isWhite {
		return White
	}
	return Black
}
