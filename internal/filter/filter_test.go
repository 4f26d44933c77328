package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/trendsignal/internal/models"
)

var (
	now        = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	thresholds = Thresholds{
		MinVolume:  100000,
		MinAge:     30 * 24 * time.Hour,
		MinReserve: 50000,
	}
)

func passingPool(address string) models.PoolRecord {
	return models.PoolRecord{
		Network:       "eth",
		Address:       address,
		Volume24h:     200000,
		ReserveUSD:    80000,
		PoolCreatedAt: now.Add(-60 * 24 * time.Hour),
	}
}

func TestCheck_Boundaries(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(p *models.PoolRecord)
		wantPassed bool
		wantReason int
	}{
		{
			name:       "comfortably above all thresholds",
			mutate:     func(p *models.PoolRecord) {},
			wantPassed: true,
		},
		{
			name:       "volume equal to threshold is excluded",
			mutate:     func(p *models.PoolRecord) { p.Volume24h = 100000 },
			wantPassed: false,
			wantReason: 1,
		},
		{
			name:       "volume one unit above threshold is included",
			mutate:     func(p *models.PoolRecord) { p.Volume24h = 100001 },
			wantPassed: true,
		},
		{
			name:       "age equal to threshold is excluded",
			mutate:     func(p *models.PoolRecord) { p.PoolCreatedAt = now.Add(-30 * 24 * time.Hour) },
			wantPassed: false,
			wantReason: 1,
		},
		{
			name:       "age one second above threshold is included",
			mutate:     func(p *models.PoolRecord) { p.PoolCreatedAt = now.Add(-30*24*time.Hour - time.Second) },
			wantPassed: true,
		},
		{
			name:       "reserve equal to threshold is excluded",
			mutate:     func(p *models.PoolRecord) { p.ReserveUSD = 50000 },
			wantPassed: false,
			wantReason: 1,
		},
		{
			name:       "reserve one unit above threshold is included",
			mutate:     func(p *models.PoolRecord) { p.ReserveUSD = 50001 },
			wantPassed: true,
		},
		{
			name: "every predicate failing",
			mutate: func(p *models.PoolRecord) {
				p.Volume24h = 0
				p.ReserveUSD = 0
				p.PoolCreatedAt = now
			},
			wantPassed: false,
			wantReason: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := passingPool("0x1")
			tt.mutate(&pool)

			got := Check(pool, thresholds, now)
			assert.Equal(t, tt.wantPassed, got.Passed)
			assert.Len(t, got.Reasons, tt.wantReason)
		})
	}
}

func TestApply_PreservesOrder(t *testing.T) {
	low := passingPool("0xlow")
	low.Volume24h = 10

	young := passingPool("0xyoung")
	young.PoolCreatedAt = now.Add(-time.Hour)

	pools := []models.PoolRecord{
		passingPool("0xa"),
		low,
		passingPool("0xb"),
		young,
		passingPool("0xc"),
	}

	got := Apply(pools, thresholds, now)
	require.Len(t, got, 3)

	addresses := make([]string, len(got))
	for i, p := range got {
		addresses[i] = p.Address
	}
	assert.Equal(t, []string{"0xa", "0xb", "0xc"}, addresses)
}

func TestApply_ReportsRejections(t *testing.T) {
	low := passingPool("0xlow")
	low.Volume24h = 10
	low.ReserveUSD = 50000

	pools := []models.PoolRecord{passingPool("0xa"), low, passingPool("0xb")}

	rejected := map[string][]string{}
	got := Apply(pools, thresholds, now, func(pool models.PoolRecord, a Assessment) {
		assert.False(t, a.Passed)
		rejected[pool.Address] = a.Reasons
	})

	assert.Len(t, got, 2)
	require.Contains(t, rejected, "0xlow")
	assert.Len(t, rejected["0xlow"], 2)
	assert.Len(t, rejected, 1)
}

func TestApply_Empty(t *testing.T) {
	got := Apply(nil, thresholds, now)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestApply_ZeroThresholds(t *testing.T) {
	// strictness still excludes zero-valued pools
	pool := models.PoolRecord{Address: "0x0", PoolCreatedAt: now}
	assert.Empty(t, Apply([]models.PoolRecord{pool}, Thresholds{}, now))
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name    string
		t       Thresholds
		wantErr bool
	}{
		{name: "canonical", t: thresholds},
		{name: "all zero", t: Thresholds{}},
		{name: "negative volume", t: Thresholds{MinVolume: -1}, wantErr: true},
		{name: "negative age", t: Thresholds{MinAge: -time.Second}, wantErr: true},
		{name: "negative reserve", t: Thresholds{MinReserve: -0.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.t.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
