package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbot/internal/shoe"
)

func TestHandTotals(t *testing.T) {
	t.Parallel()

	var h Hand
	h.Add(9)
	h.Add(shoe.Ace)
	require.Equal(t, 20, h.Total())
	require.True(t, h.Soft())

	require.True(t, h.Add(5), "the ace should be demoted")
	assert.Equal(t, 15, h.Total())
	assert.False(t, h.Soft())
	assert.Equal(t, 25, h.rawTotal())
	assert.Equal(t, []int{9, 11, 5}, h.Cards(), "drawn values are never rewritten")
	assert.Equal(t, []int{9, 1, 5}, h.Values())

	assert.False(t, h.Add(10), "no ace left to demote")
	assert.True(t, h.Busted())
	assert.Equal(t, 25, h.Total())
}

func TestHandTwoAces(t *testing.T) {
	t.Parallel()

	var h Hand
	require.False(t, h.Add(shoe.Ace), "a single ace never busts")
	require.True(t, h.Add(shoe.Ace), "second ace should demote the first")
	assert.Equal(t, 12, h.Total())
	assert.Equal(t, 1, h.Demoted())
	assert.Equal(t, []int{1, 11}, h.Values())

	// Third ace: 23 would bust, one more demotion.
	h.Add(shoe.Ace)
	assert.Equal(t, 13, h.Total())
	assert.Equal(t, 2, h.Demoted())
}

func TestHandOneDemotionPerCard(t *testing.T) {
	t.Parallel()

	// A, A demotes once to 12; adding 10 gives 22 and demotes the second
	// ace. Each Add demotes at most one ace.
	var h Hand
	h.Add(shoe.Ace)
	h.Add(shoe.Ace)
	before := h.Demoted()
	h.Add(10)
	assert.Equal(t, 1, h.Demoted()-before)
	assert.Equal(t, 12, h.Total())
}

func TestHandAcePlusOneCardNeverBusts(t *testing.T) {
	t.Parallel()

	for _, v := range shoe.Ranks {
		var h Hand
		h.Add(shoe.Ace)
		h.Add(v)
		assert.False(t, h.Busted(), "A+%d", v)
		assert.LessOrEqual(t, h.Total(), Goal, "A+%d", v)
	}
}

func TestHandReset(t *testing.T) {
	t.Parallel()

	var h Hand
	h.Add(shoe.Ace)
	h.Add(shoe.Ace)
	h.Reset()
	assert.Zero(t, h.Len())
	assert.Zero(t, h.Total())
	assert.Zero(t, h.Demoted())
}
