package service

import (
	"testing"
	"time"

	"lms_content_backend/internal/model"
)

func TestParseScorm12Time(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"0000:00:00.00", 0, false},
		{"0001:30:15.50", time.Hour + 30*time.Minute + 15*time.Second + 500*time.Millisecond, false},
		{"00:05:30", 5*time.Minute + 30*time.Second, false},
		{"100:00:00", 100 * time.Hour, false},
		{"1:00:00", 0, true},
		{"0000:61:00", 0, true},
		{"PT1H", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseScorm12Time(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseScorm12Time(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseScorm12Time(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseScorm12Time(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseISO8601Duration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"PT0S", 0, false},
		{"PT1H30M", time.Hour + 30*time.Minute, false},
		{"PT5.5S", 5500 * time.Millisecond, false},
		{"P1DT2H", 26 * time.Hour, false},
		{"PT90M", 90 * time.Minute, false},
		{"P", 0, true},
		{"PT", 0, true},
		{"1H", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseISO8601Duration(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseISO8601Duration(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseISO8601Duration(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseISO8601Duration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatScormDuration(t *testing.T) {
	d := time.Hour + 5*time.Minute + 30*time.Second
	if got := formatScormDuration(model.PackageScorm12, d); got != "0001:05:30.00" {
		t.Errorf("1.2 format = %q", got)
	}
	if got := formatScormDuration(model.PackageScorm2004, d); got != "PT1H5M30.00S" {
		t.Errorf("2004 format = %q", got)
	}
}

func TestAccumulateTotalTime(t *testing.T) {
	total, err := accumulateTotalTime(model.PackageScorm12, "", "0000:30:00.00")
	if err != nil {
		t.Fatalf("first session: %v", err)
	}
	total, err = accumulateTotalTime(model.PackageScorm12, total, "0001:00:00.00")
	if err != nil {
		t.Fatalf("second session: %v", err)
	}
	if total != "0001:30:00.00" {
		t.Errorf("accumulated = %q, want 0001:30:00.00", total)
	}

	total, err = accumulateTotalTime(model.PackageScorm2004, "PT1H0M0.00S", "PT30M")
	if err != nil {
		t.Fatalf("2004 accumulate: %v", err)
	}
	if total != "PT1H30M0.00S" {
		t.Errorf("2004 accumulated = %q, want PT1H30M0.00S", total)
	}

	if _, err := accumulateTotalTime(model.PackageScorm12, "", "garbage"); err == nil {
		t.Error("expected error for malformed session time")
	}
}
