package tryon

import "strings"

// BuildInstruction converts a pose into the structured natural-language
// instruction sent to the generation backend alongside the two source
// images. The first image part is always the person, the second the garment.
func BuildInstruction(p Pose) string {
	parts := []string{
		"You are given two photos: the first shows a person, the second shows a clothing item.",
		"First, determine the apparent gender of the person in the first photo.",
		"Then determine whether the clothing item in the second photo is a top or a full outfit.",
		"Dress the person in the clothing item. If the item is only a top, add complementary bottom wear that matches its style.",
		"Re-pose the dressed figure: " + strings.TrimSpace(p.Description) + ".",
		"Place the figure against a plain light-grey professional studio backdrop with soft, even lighting.",
		"Return exactly one photorealistic portrait-oriented image of the full figure.",
		"Do not add any text, labels or watermarks to the image.",
	}
	return strings.Join(parts, " ")
}
