package population

import (
	"fmt"
	"math/rand/v2"
)

var (
	firstNames = []string{
		"Ada", "Bruno", "Chen", "Dara", "Elif", "Farah", "Gus", "Hana", "Ivo", "Jun",
		"Kemi", "Lior", "Maya", "Nico", "Omar", "Priya", "Quinn", "Rosa", "Sven", "Tara",
		"Uma", "Vik", "Wren", "Xena", "Yusuf", "Zoe",
	}
	lastNames = []string{
		"Abbott", "Baker", "Castillo", "Dubois", "Eriksen", "Fischer", "Garcia", "Hayes",
		"Ito", "Jansen", "Kowalski", "Lopez", "Moreau", "Nakamura", "Okafor", "Petrov",
		"Quinlan", "Rossi", "Sato", "Turner", "Underwood", "Varga", "Walsh", "Young",
	}
)

func displayName() string {
	return fmt.Sprintf("%s %s", firstNames[rand.IntN(len(firstNames))], lastNames[rand.IntN(len(lastNames))])
}
