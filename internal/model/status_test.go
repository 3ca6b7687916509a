package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusFailed, true},
		{StatusPaid, StatusRefunded, true},
		{StatusPaid, StatusPending, false},
		{StatusPaid, StatusExpired, false},
		{StatusExpired, StatusPaid, false},
		{StatusRefunded, StatusPaid, false},
		{StatusFailed, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderTransition(t *testing.T) {
	o := &Order{Status: StatusPaid}

	changed, err := o.Transition(StatusPaid)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = o.Transition(StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	changed, err = o.Transition(StatusRefunded)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestSourcesFor(t *testing.T) {
	assert.ElementsMatch(t, []OrderStatus{StatusPending}, SourcesFor(StatusPaid))
	assert.ElementsMatch(t, []OrderStatus{StatusPaid}, SourcesFor(StatusRefunded))
	assert.Empty(t, SourcesFor(StatusPending))
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" PAID ")
	assert.True(t, ok)
	assert.Equal(t, StatusPaid, s)

	_, ok = ParseStatus("shipped")
	assert.False(t, ok)
}

func TestIsOwnedBy(t *testing.T) {
	o := &Order{UserID: "u1", Email: "Buyer@Example.com"}
	assert.True(t, o.IsOwnedBy("u1", ""))
	assert.True(t, o.IsOwnedBy("other", "buyer@example.com"))
	assert.False(t, o.IsOwnedBy("other", "x@example.com"))

	anon := &Order{Email: "buyer@example.com"}
	assert.False(t, anon.IsOwnedBy("", ""))
}
