// Package telemetry produces the mock system-health feed shown on the
// dashboard. Snapshots are synthetic by design: nothing is sampled or
// persisted, each reading is a deterministic function of the current
// one-minute time bucket, so repeated reads within a bucket are stable and
// readings across buckets drift smoothly instead of jumping.
package telemetry

import (
	"math"
	"time"

	"github.com/regionops/rims/internal/model"
)

// bucketWidth is the window within which snapshots are constant.
const bucketWidth = time.Minute

// warningThreshold is the cpu/disk percentage above which the service is
// reported as WARNING.
const warningThreshold = 85

// Generator computes mock metrics snapshots. The zero value is not usable;
// construct with New.
type Generator struct {
	now func() time.Time
}

// New creates a Generator using wall-clock time.
func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock creates a Generator with a fixed time source. Test hook.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// Snapshot computes the current reading.
func (g *Generator) Snapshot() model.MetricsSnapshot {
	now := g.now()
	bucket := float64(now.UnixMilli() / bucketWidth.Milliseconds())

	cpu := wave(bucket, 42, 18, 3.2)
	disk := wave(bucket, 63, 5, 9.5)
	networkIn := 40 + math.Abs(math.Sin(bucket/2.5))*28
	networkOut := 25 + math.Abs(math.Cos(bucket/2.1))*18
	tickets := int(math.Round(2 + math.Sin(bucket/4.8)*2))
	if tickets < 0 {
		tickets = 0
	}

	health := model.HealthHealthy
	if cpu > warningThreshold || disk > warningThreshold {
		health = model.HealthWarning
	}

	return model.MetricsSnapshot{
		CPU:            round1(cpu),
		Disk:           round1(disk),
		NetworkInMbps:  round1(networkIn),
		NetworkOutMbps: round1(networkOut),
		ActiveTickets:  tickets,
		ServiceHealth:  health,
		UpdatedAt:      now.UTC(),
	}
}

// wave is a sinusoid around base with the given amplitude and period factor,
// clamped to the displayable percentage range.
func wave(bucket, base, amplitude, factor float64) float64 {
	v := base + math.Sin(bucket/factor)*amplitude
	return math.Max(1, math.Min(99, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
