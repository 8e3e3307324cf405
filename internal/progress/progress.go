package progress

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

// Store 将规划任务的实时进度保存在 redis 中
type Store struct {
	rdb        *redis.Client
	timeout    time.Duration
	expiration time.Duration
}

func NewStore(rdb *redis.Client, timeout, expiration time.Duration) *Store {
	return &Store{
		rdb:        rdb,
		timeout:    timeout,
		expiration: expiration,
	}
}

func (s *Store) Set(jobID int64, p *domain.PlanningProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.rdb.Set(ctx, domain.PlanningProgressKey(jobID), data, s.expiration).Err()
}

// Get 在进度不存在或已过期时返回 nil
func (s *Store) Get(jobID int64) (*domain.PlanningProgress, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	data, err := s.rdb.Get(ctx, domain.PlanningProgressKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	p := &domain.PlanningProgress{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}

	return p, nil
}

// Throttle 限制同一任务进度的写入频率，演化每一代都会产生进度
type Throttle struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval, now: time.Now}
}

// Allow 距离上次允许的时间超过 interval 时返回 true，force 为 true 时总是允许
func (t *Throttle) Allow(force bool) bool {
	now := t.now()
	if !force && !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
