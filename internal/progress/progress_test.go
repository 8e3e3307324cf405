package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

func TestThrottle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	throttle := NewThrottle(time.Second)
	throttle.now = func() time.Time { return now }

	assert.True(t, throttle.Allow(false), "第一次总是允许")
	assert.False(t, throttle.Allow(false))

	now = now.Add(500 * time.Millisecond)
	assert.False(t, throttle.Allow(false))
	assert.True(t, throttle.Allow(true))

	now = now.Add(999 * time.Millisecond)
	assert.False(t, throttle.Allow(false))

	now = now.Add(time.Millisecond)
	assert.True(t, throttle.Allow(false))
}

func TestProgressKey(t *testing.T) {
	assert.Equal(t, "planning_job_42_progress", domain.PlanningProgressKey(42))
}
