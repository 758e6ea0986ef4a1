package discount

import "time"

// WindowStart returns the start of the calendar bucket of the given period
// containing now, in now's location. Buckets are calendar-aligned: a "day"
// limit resets at midnight, not 24 hours after first use. Weeks start on
// Monday.
func WindowStart(p Period, now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()

	switch p {
	case PeriodDay:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PeriodWeek:
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		// time.Weekday is Sunday-based; shift so Monday is day zero.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return now
	}
}

// weekdayIndex maps a time to the Monday-first index used by DaysOfWeek.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
