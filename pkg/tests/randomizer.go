package tests

import (
	"math/rand"
	"time"
)

type Randomizer struct {
	Int64n func(n int64) int64
	Bool   func() bool
}

func NewRandomizer() Randomizer {
	random := rand.New(rand.NewSource(time.Now().Unix())) //nolint:gosec // for tests

	return Randomizer{
		Int64n: random.Int63n,
		Bool:   func() bool { return random.Intn(2) == 0 }, //nolint:mnd // skip
	}
}
