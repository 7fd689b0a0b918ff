package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for range 16 {
		assert.Equal(t, a.IntN(208), b.IntN(208))
	}
}

func TestSeedFansOut(t *testing.T) {
	parent := New(7)
	first := Seed(parent)
	second := Seed(parent)
	assert.NotEqual(t, first, second)
}
