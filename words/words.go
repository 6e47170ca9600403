package words

import "strings"

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var tiers = map[Difficulty][]string{
	Easy: {
		"cat", "dog", "sun", "moon", "star", "tree", "house", "car", "fish", "bird",
		"apple", "banana", "pizza", "cake", "flower", "heart", "rainbow", "ball",
		"balloon", "book", "phone", "clock", "chair", "table", "door", "window",
		"hat", "shoe", "boat", "train", "bus", "bike", "key", "cup", "fork", "spoon",
	},
	Medium: {
		"elephant", "giraffe", "butterfly", "dinosaur", "rocket", "airplane", "submarine",
		"basketball", "football", "skateboard", "guitar", "piano", "camera", "television",
		"computer", "headphones", "umbrella", "lighthouse", "mountain", "waterfall",
	},
	Hard: {
		"astronaut", "skyscraper", "rollercoaster", "thunderstorm", "helicopter",
		"firefighter", "parachute", "windmill", "caterpillar", "xylophone",
		"chandelier", "trampoline", "aquarium", "carousel", "escalator",
	},
}

// Tier returns the word list of a difficulty. The returned slice must not be modified.
func Tier(d Difficulty) []string {
	return tiers[d]
}

func Valid(d Difficulty) bool {
	_, ok := tiers[d]
	return ok
}

// ParseDifficulty is case-insensitive and reports false for unknown tiers.
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	return d, Valid(d)
}
