package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(15 * time.Minute)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(15*time.Minute), s.Next(now))
	assert.Equal(t, "@every 15m0s", s.String())
}

func TestDailySchedule_Next(t *testing.T) {
	s := NewDailySchedule(9, 30)

	before := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC), s.Next(before))

	exactly := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 11, 9, 30, 0, 0, time.UTC), s.Next(exactly), "next is strictly after")

	after := time.Date(2024, 1, 10, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 11, 9, 30, 0, 0, time.UTC), s.Next(after))
}

func TestDailySchedule_ClampsInvalidValues(t *testing.T) {
	s := NewDailySchedule(99, -5)
	assert.Equal(t, 0, s.Hour)
	assert.Equal(t, 0, s.Minute)
}
