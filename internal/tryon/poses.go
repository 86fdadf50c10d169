package tryon

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Pose is an immutable natural-language description of a target pose. The
// default set of four is fixed at process start and never mutated.
type Pose struct {
	Slug        string
	Description string
}

var titleCaser = cases.Title(language.English)

// Label renders the slug as a human-readable display name, used in download
// filenames and slot metadata.
func (p Pose) Label() string {
	return titleCaser.String(strings.ReplaceAll(p.Slug, "-", " "))
}

var defaultPoses = [...]Pose{
	{
		Slug:        "front-standing",
		Description: "standing upright facing the camera, arms relaxed at the sides, weight evenly balanced",
	},
	{
		Slug:        "walking",
		Description: "captured mid-stride walking toward the camera with a natural, confident gait",
	},
	{
		Slug:        "three-quarter-turn",
		Description: "turned three-quarters away from the camera, looking back over the shoulder, one hand resting on the hip",
	},
	{
		Slug:        "seated",
		Description: "seated on a plain studio stool, posture upright, hands resting on the knees",
	},
}

// Poses returns a copy of the fixed pose set.
func Poses() []Pose {
	out := make([]Pose, len(defaultPoses))
	copy(out, defaultPoses[:])
	return out
}
