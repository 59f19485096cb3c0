package domain

import "math/rand"

// assignment pairs one hunter with their target in the kill ring.
type assignment struct {
	HunterID string
	TargetID string
}

// ringAssignments shuffles the players and links them into a single cycle:
// every player hunts exactly one other player, is hunted by exactly one, and
// never hunts themselves.
func ringAssignments(rng *rand.Rand, playerIDs []string) []assignment {
	shuffled := make([]string, len(playerIDs))
	copy(shuffled, playerIDs)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	assignments := make([]assignment, 0, len(shuffled))
	for i, hunter := range shuffled {
		assignments = append(assignments, assignment{
			HunterID: hunter,
			TargetID: shuffled[(i+1)%len(shuffled)],
		})
	}
	return assignments
}
