package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopRange_Overlaps(t *testing.T) {
	testCases := []struct {
		name     string
		a        StopRange
		b        StopRange
		overlaps bool
	}{
		{name: "identical ranges", a: StopRange{1, 5}, b: StopRange{1, 5}, overlaps: true},
		{name: "contained range", a: StopRange{1, 5}, b: StopRange{2, 4}, overlaps: true},
		{name: "partial overlap", a: StopRange{1, 5}, b: StopRange{4, 6}, overlaps: true},
		{name: "adjacent after", a: StopRange{1, 5}, b: StopRange{5, 9}, overlaps: false},
		{name: "adjacent before", a: StopRange{1, 5}, b: StopRange{0, 1}, overlaps: false},
		{name: "disjoint", a: StopRange{1, 3}, b: StopRange{6, 9}, overlaps: false},
		{name: "single unit shared", a: StopRange{2, 3}, b: StopRange{2, 3}, overlaps: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlaps, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.overlaps, tc.b.Overlaps(tc.a), "overlap must be symmetric")
		})
	}
}

func TestStopRange_Valid(t *testing.T) {
	assert.True(t, StopRange{From: 0, To: 1}.Valid())
	assert.True(t, StopRange{From: 3, To: 7}.Valid())
	assert.False(t, StopRange{From: 5, To: 5}.Valid())
	assert.False(t, StopRange{From: 5, To: 3}.Valid())
	assert.False(t, StopRange{From: -1, To: 4}.Valid())
}
