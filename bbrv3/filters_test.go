package bbrv3

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaxFilterRotation(t *testing.T) {
	f := NewMaxFilter(2)
	f.Update(0, 10)
	require.EqualValues(t, 10, f.Get())

	f.Update(1, 5)
	require.EqualValues(t, 10, f.Get(), "slot 0's peak still dominates until it rotates out")

	f.StartPeriod(2)
	f.Update(2, 3)
	require.EqualValues(t, 5, f.Get(), "slot 0 cleared, slot 1's 5 is now the max")
}

func TestMaxFilterDoesNotLowerWithinSlot(t *testing.T) {
	f := NewMaxFilter(2)
	f.Update(0, 100)
	f.Update(0, 1)
	require.EqualValues(t, 100, f.Get())
}
