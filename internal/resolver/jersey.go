package resolver

import (
	"math/rand/v2"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/ingest"
)

// MaxJerseyDraws bounds the random draws spent looking for a free number for
// one player.
const MaxJerseyDraws = 200

// NewJerseyRand returns the deterministic random source used for automatic
// jersey numbers.
func NewJerseyRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// AssignJerseyNumbers maps every player name to a number. A declared number is
// used verbatim even when another player declared the same one. Everyone else
// gets a random unused number in [1, 98], or domain.UnassignedNumber when
// MaxJerseyDraws draws all hit taken numbers.
//
// Declared players are resolved first so automatic numbers never shadow them;
// automatic numbers are then drawn in the order of names.
func AssignJerseyNumbers(names []string, declared ingest.JerseyNumbers, rng *rand.Rand) map[string]int {
	numbers := make(map[string]int, len(names))
	used := make(map[int]bool)

	var undeclared []string
	for _, name := range names {
		if _, done := numbers[name]; done {
			continue
		}
		if n, ok := declared.Lookup(name); ok {
			numbers[name] = n
			used[n] = true
			continue
		}
		undeclared = append(undeclared, name)
	}

	for _, name := range undeclared {
		if _, done := numbers[name]; done {
			continue
		}
		numbers[name] = drawFreeNumber(used, rng)
		if numbers[name] != domain.UnassignedNumber {
			used[numbers[name]] = true
		}
	}
	return numbers
}

func drawFreeNumber(used map[int]bool, rng *rand.Rand) int {
	span := domain.MaxJerseyNumber - domain.MinJerseyNumber + 1
	for range MaxJerseyDraws {
		n := domain.MinJerseyNumber + rng.IntN(span)
		if !used[n] {
			return n
		}
	}
	return domain.UnassignedNumber
}
