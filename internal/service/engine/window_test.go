package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	testCases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:00", want: 540},
		{in: "23:59", want: 1439},
		{in: "9:05", want: 545},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseClock(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInWindow(t *testing.T) {
	const (
		nine      = 9 * 60
		eighteen  = 18 * 60
		twentyTwo = 22 * 60
		six       = 6 * 60
	)

	testCases := []struct {
		name            string
		now, start, end int
		want            bool
	}{
		{name: "inside same-day window", now: 12 * 60, start: nine, end: eighteen, want: true},
		{name: "before same-day window", now: 8 * 60, start: nine, end: eighteen, want: false},
		{name: "after same-day window", now: 19 * 60, start: nine, end: eighteen, want: false},
		{name: "start boundary inclusive", now: nine, start: nine, end: eighteen, want: true},
		{name: "end boundary inclusive", now: eighteen, start: nine, end: eighteen, want: true},

		{name: "midnight cross, late evening", now: 23 * 60, start: twentyTwo, end: six, want: true},
		{name: "midnight cross, early morning", now: 3 * 60, start: twentyTwo, end: six, want: true},
		{name: "midnight cross, midday outside", now: 12 * 60, start: twentyTwo, end: six, want: false},
		{name: "midnight cross, start boundary", now: twentyTwo, start: twentyTwo, end: six, want: true},
		{name: "midnight cross, end boundary", now: six, start: twentyTwo, end: six, want: true},

		{name: "full day window", now: 0, start: 0, end: 1439, want: true},
		{name: "equal start and end never matches", now: nine, start: nine, end: nine, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InWindow(tc.now, tc.start, tc.end))
		})
	}
}

func TestInWindowAt_MalformedScheduleDegrades(t *testing.T) {
	noon := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, inWindowAt(noon, "09:00", "18:00"))
	assert.False(t, inWindowAt(noon, "late", "18:00"))
	assert.False(t, inWindowAt(noon, "09:00", "early"))
	assert.False(t, inWindowAt(noon, "12:00", "12:00"))
}
