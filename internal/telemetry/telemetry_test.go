package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/regionops/rims/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSnapshotStableWithinBucket(t *testing.T) {
	base := time.Date(2026, 2, 24, 9, 30, 0, 0, time.UTC)
	a := NewWithClock(fixedClock(base)).Snapshot()
	b := NewWithClock(fixedClock(base.Add(59 * time.Second))).Snapshot()

	if a.CPU != b.CPU || a.Disk != b.Disk || a.NetworkInMbps != b.NetworkInMbps ||
		a.NetworkOutMbps != b.NetworkOutMbps || a.ActiveTickets != b.ActiveTickets {
		t.Errorf("readings changed within one bucket: %+v vs %+v", a, b)
	}
}

func TestSnapshotChangesAcrossBuckets(t *testing.T) {
	base := time.Date(2026, 2, 24, 9, 30, 0, 0, time.UTC)
	a := NewWithClock(fixedClock(base)).Snapshot()
	b := NewWithClock(fixedClock(base.Add(time.Minute))).Snapshot()

	if a.CPU == b.CPU && a.NetworkInMbps == b.NetworkInMbps && a.NetworkOutMbps == b.NetworkOutMbps {
		t.Error("readings identical across adjacent buckets")
	}
}

func TestSnapshotRanges(t *testing.T) {
	// Walk a full day of buckets; every reading must stay in its band.
	start := time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 24*60; i++ {
		snap := NewWithClock(fixedClock(start.Add(time.Duration(i) * time.Minute))).Snapshot()

		if snap.CPU < 1 || snap.CPU > 99 {
			t.Fatalf("bucket %d: cpu %.1f out of [1,99]", i, snap.CPU)
		}
		if snap.Disk < 1 || snap.Disk > 99 {
			t.Fatalf("bucket %d: disk %.1f out of [1,99]", i, snap.Disk)
		}
		if snap.NetworkInMbps < 40 || snap.NetworkInMbps > 68 {
			t.Fatalf("bucket %d: network in %.1f out of [40,68]", i, snap.NetworkInMbps)
		}
		if snap.NetworkOutMbps < 25 || snap.NetworkOutMbps > 43 {
			t.Fatalf("bucket %d: network out %.1f out of [25,43]", i, snap.NetworkOutMbps)
		}
		if snap.ActiveTickets < 0 || snap.ActiveTickets > 4 {
			t.Fatalf("bucket %d: tickets %d out of [0,4]", i, snap.ActiveTickets)
		}

		wantHealth := model.HealthHealthy
		if snap.CPU > 85 || snap.Disk > 85 {
			wantHealth = model.HealthWarning
		}
		if snap.ServiceHealth != wantHealth {
			t.Fatalf("bucket %d: health %s with cpu %.1f disk %.1f", i, snap.ServiceHealth, snap.CPU, snap.Disk)
		}
	}
}

func TestSnapshotRounding(t *testing.T) {
	snap := NewWithClock(fixedClock(time.Date(2026, 2, 24, 9, 30, 17, 0, time.UTC))).Snapshot()

	for _, v := range []float64{snap.CPU, snap.Disk, snap.NetworkInMbps, snap.NetworkOutMbps} {
		if math.Abs(v*10-math.Round(v*10)) > 1e-9 {
			t.Errorf("reading %v not rounded to one decimal", v)
		}
	}
}

func TestSnapshotTimestamp(t *testing.T) {
	at := time.Date(2026, 2, 24, 9, 30, 17, 0, time.FixedZone("CET", 3600))
	snap := NewWithClock(fixedClock(at)).Snapshot()

	if !snap.UpdatedAt.Equal(at) {
		t.Errorf("UpdatedAt = %v, want %v", snap.UpdatedAt, at)
	}
	if snap.UpdatedAt.Location() != time.UTC {
		t.Error("UpdatedAt not normalized to UTC")
	}
}
