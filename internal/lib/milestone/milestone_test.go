package milestone

import (
	"testing"
	"time"
)

func TestTargetDate_TableTests(t *testing.T) {
	now := time.Date(2025, 3, 14, 17, 45, 12, 0, time.UTC)

	tests := []struct {
		name string
		m    Milestone
		now  time.Time
		want time.Time
	}{
		{
			name: "three days ahead",
			m:    UpcomingThreeDays,
			now:  now,
			want: time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "one day ahead",
			m:    UpcomingOneDay,
			now:  now,
			want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "expired targets today",
			m:    Expired,
			now:  now,
			want: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "month boundary",
			m:    UpcomingThreeDays,
			now:  time.Date(2025, 1, 30, 1, 0, 0, 0, time.UTC),
			want: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "year boundary",
			m:    UpcomingOneDay,
			now:  time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
			want: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-utc clock is normalized",
			m:    UpcomingOneDay,
			now:  time.Date(2025, 6, 1, 1, 30, 0, 0, time.FixedZone("MSK", 3*60*60)),
			want: time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.TargetDate(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("TargetDate(%v) for %s = %v, want %v", tt.now, tt.m, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "strips clock",
			in:   time.Date(2025, 7, 9, 23, 59, 59, 999, time.UTC),
			want: time.Date(2025, 7, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "already midnight",
			in:   time.Date(2025, 7, 9, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 7, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "eastern zone rolls back a day",
			in:   time.Date(2025, 7, 10, 2, 0, 0, 0, time.FixedZone("MSK", 3*60*60)),
			want: time.Date(2025, 7, 9, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("Truncate(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	if got := UpcomingThreeDays.Offset(); got != 3 {
		t.Errorf("Offset() = %d, want 3", got)
	}
	if got := UpcomingOneDay.Offset(); got != 1 {
		t.Errorf("Offset() = %d, want 1", got)
	}
	if got := Expired.Offset(); got != 0 {
		t.Errorf("Offset() = %d, want 0", got)
	}
}
