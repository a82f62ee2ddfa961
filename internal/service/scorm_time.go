package service

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"lms_content_backend/internal/model"
)

// SCORM 1.2 session_time: HHHH:MM:SS[.ss], hours may be 2 to 4 digits.
var scorm12TimePattern = regexp.MustCompile(`^(\d{2,4}):(\d{2}):(\d{2}(?:\.\d{1,2})?)$`)

// SCORM 2004 session_time: ISO 8601 duration, e.g. PT1H30M5.5S.
var iso8601Pattern = regexp.MustCompile(
	`^P(?:(\d+(?:\.\d+)?)Y)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)D)?` +
		`(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

func parseScormDuration(kind model.PackageKind, s string) (time.Duration, error) {
	if kind == model.PackageScorm2004 {
		return parseISO8601Duration(s)
	}
	return parseScorm12Time(s)
}

func formatScormDuration(kind model.PackageKind, d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := d.Seconds()
	hours := int(secs) / 3600
	mins := (int(secs) % 3600) / 60
	rem := secs - float64(hours*3600+mins*60)
	if kind == model.PackageScorm2004 {
		return fmt.Sprintf("PT%dH%dM%.2fS", hours, mins, rem)
	}
	return fmt.Sprintf("%04d:%02d:%05.2f", hours, mins, rem)
}

func parseScorm12Time(s string) (time.Duration, error) {
	m := scorm12TimePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid SCORM 1.2 timespan %q", s)
	}
	hours, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, _ := strconv.ParseFloat(m[3], 64)
	if mins > 59 || secs >= 60 {
		return 0, fmt.Errorf("invalid SCORM 1.2 timespan %q", s)
	}
	total := float64(hours*3600+mins*60) + secs
	return time.Duration(total * float64(time.Second)), nil
}

func parseISO8601Duration(s string) (time.Duration, error) {
	m := iso8601Pattern.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}
	// Nominal durations per the SCORM runtime convention.
	factors := []float64{
		365 * 24 * 3600, // years
		30 * 24 * 3600,  // months
		24 * 3600,       // days
		3600,            // hours
		60,              // minutes
		1,               // seconds
	}
	total := 0.0
	matched := false
	for i, factor := range factors {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, err
		}
		total += v * factor
		matched = true
	}
	if !matched {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", s)
	}
	return time.Duration(total * float64(time.Second)), nil
}

// accumulateTotalTime adds a session time onto the stored total, keeping
// the total in the package's native timespan format.
func accumulateTotalTime(kind model.PackageKind, total, session string) (string, error) {
	sess, err := parseScormDuration(kind, session)
	if err != nil {
		return total, err
	}
	prev := time.Duration(0)
	if total != "" {
		if p, err := parseScormDuration(kind, total); err == nil {
			prev = p
		}
	}
	return formatScormDuration(kind, prev+sess), nil
}
