package shoe

import (
	rand "math/rand/v2"
	"strconv"
)

var faceNames = [...]string{"10", "Jack", "Queen", "King"}

// CardName renders a card value with its article for chat reports. The
// shoe does not remember which face card was dealt, so a ten-valued card
// is given a random face each time it is named.
func CardName(value int, rng *rand.Rand) string {
	switch value {
	case Face:
		if rng == nil {
			return "a " + faceNames[0]
		}
		return "a " + faceNames[rng.IntN(len(faceNames))]
	case Ace:
		return "an Ace"
	case 8:
		return "an 8"
	default:
		return "a " + strconv.Itoa(value)
	}
}
