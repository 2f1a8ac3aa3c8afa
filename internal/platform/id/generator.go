package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates opaque record IDs. IDs are 128-bit random values so
// offline devices can mint them without coordinating with the remote.
type Generator interface {
	NewID() (string, error)
}

type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate random id: %w", err)
	}

	return value.String(), nil
}
