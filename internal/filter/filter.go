package filter

import (
	"fmt"
	"time"

	"github.com/songzhibin97/trendsignal/internal/models"
)

// Thresholds 候选池筛选阈值，池子必须严格大于全部三个阈值
type Thresholds struct {
	MinVolume  float64       `json:"min_volume_usd" mapstructure:"min_volume_usd"`
	MinAge     time.Duration `json:"min_pool_age" mapstructure:"min_pool_age"`
	MinReserve float64       `json:"min_reserve_usd" mapstructure:"min_reserve_usd"`
}

func (t Thresholds) Validate() error {
	if t.MinVolume < 0 || t.MinAge < 0 || t.MinReserve < 0 {
		return fmt.Errorf("invalid filter thresholds: all values must be non-negative")
	}
	return nil
}

// Assessment 单个池子的筛选结果
type Assessment struct {
	Passed  bool     `json:"passed"`
	Reasons []string `json:"reasons"`
}

// Check evaluates one pool and reports every predicate it fails.
func Check(pool models.PoolRecord, t Thresholds, now time.Time) Assessment {
	assessment := Assessment{Passed: true}

	if !(pool.Volume24h > t.MinVolume) {
		assessment.Passed = false
		assessment.Reasons = append(assessment.Reasons,
			fmt.Sprintf("24h volume %.2f not above %.2f", pool.Volume24h, t.MinVolume))
	}

	if age := now.Sub(pool.PoolCreatedAt); !(age > t.MinAge) {
		assessment.Passed = false
		assessment.Reasons = append(assessment.Reasons,
			fmt.Sprintf("pool age %s not above %s", age.Truncate(time.Second), t.MinAge))
	}

	if !(pool.ReserveUSD > t.MinReserve) {
		assessment.Passed = false
		assessment.Reasons = append(assessment.Reasons,
			fmt.Sprintf("reserve %.2f not above %.2f", pool.ReserveUSD, t.MinReserve))
	}

	return assessment
}

// RejectFunc observes a pool dropped by Apply together with the failed checks.
type RejectFunc func(pool models.PoolRecord, assessment Assessment)

// Apply returns the pools passing all thresholds, in input order. Each
// rejected pool is reported to the optional onReject observers.
func Apply(pools []models.PoolRecord, t Thresholds, now time.Time, onReject ...RejectFunc) []models.PoolRecord {
	passed := make([]models.PoolRecord, 0, len(pools))
	for _, pool := range pools {
		assessment := Check(pool, t, now)
		if assessment.Passed {
			passed = append(passed, pool)
			continue
		}
		for _, fn := range onReject {
			fn(pool, assessment)
		}
	}
	return passed
}
