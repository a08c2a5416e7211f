package gdelt

import "time"

// Window is one closed query interval against the DOC API.
type Window struct {
	Start time.Time
	End   time.Time
}

// MonthlyWindows splits [start, end] into calendar-month windows.
// Window edges sit at 00:00:00 and 23:59:59 UTC; the final window is
// clamped to the overall end date. Windows never overlap and jointly
// cover the whole range.
func MonthlyWindows(start, end time.Time) []Window {
	var windows []Window

	current := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)

	for !current.After(rangeEnd) {
		nextMonth := current.AddDate(0, 1, 0)

		windowStart := current
		if windowStart.Before(start) {
			windowStart = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		}

		windowEnd := nextMonth.Add(-time.Second)
		if windowEnd.After(rangeEnd) {
			windowEnd = rangeEnd
		}

		windows = append(windows, Window{Start: windowStart, End: windowEnd})
		current = nextMonth
	}

	return windows
}
