package models

import (
	"encoding/binary"
	"math/rand/v2"
	"slices"

	id "campaign/pkg/domain"
)

// Split shuffles recipients with a generator seeded from the test id and
// returns two samples of size each plus the remainder. The same test id and
// input always yield the same split.
func Split(testID id.SplitTestID, recipients []id.RecipientID, size int) (a, b, rest []id.RecipientID) {
	shuffled := slices.Clone(recipients)
	seed := [16]byte(testID)
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(seed[:8]), binary.BigEndian.Uint64(seed[8:])))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	size = min(size, len(shuffled)/2)
	return shuffled[:size:size], shuffled[size : 2*size : 2*size], shuffled[2*size:]
}
