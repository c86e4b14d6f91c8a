package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsFuture_Strict(t *testing.T) {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.False(t, IsFuture(now, now))
	assert.True(t, IsFuture(now.Add(time.Second), now))
	assert.False(t, IsFuture(now.Add(-time.Second), now))
}

func TestHumanize(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2030, 6, 1, 14, 0, 0, 0, loc)
	assert.Equal(t, "Sat, 01 Jun 2030 12:00 UTC", Humanize(ts))
}
