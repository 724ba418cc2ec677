package game

// Rotation is one of the eight symmetries of a square board.
type Rotation int

const (
	RotationNone Rotation = iota
	Rotation90
	Rotation180
	Rotation270
	HorizontalRotation
	HorizontalRotation90
	HorizontalRotation180
	HorizontalRotation270
	NumRotations
)

var rotationNames = [NumRotations]string{
	"Rotation_None",
	"Rotation_90_Degree",
	"Rotation_180_Degree",
	"Rotation_270_Degree",
	"Horizontal_Rotation",
	"Horizontal_Rotation_90_Degree",
	"Horizontal_Rotation_180_Degree",
	"Horizontal_Rotation_270_Degree",
}

func (r Rotation) String() string {
	if r < 0 || r >= NumRotations {
		return "Rotation_Unknown"
	}
	return rotationNames[r]
}

// Reversed returns the rotation that undoes r. Reflections are their own inverse.
func (r Rotation) Reversed() Rotation {
	switch r {
	case Rotation90:
		return Rotation270
	case Rotation270:
		return Rotation90
	}
	return r
}

// Symmetry maps board positions and action ids under a rotation. Leapfrog's
// opening layout is not symmetric, so its implementation is the identity; the
// rotation argument stays so that variants with real symmetries share the
// feature encoding code.
type Symmetry interface {
	RotatePosition(position int, rotation Rotation) int
	RotateAction(actionID int, rotation Rotation) int
}
