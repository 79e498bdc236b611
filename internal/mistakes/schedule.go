package mistakes

import "time"

// Intervals defines the review schedule in days. The first entry applies
// to a fresh mistake; entry i applies after the i-th correction.
var Intervals = []int{1, 3, 7, 14, 30}

// GraduationThreshold is the number of corrections after which a mistake is
// considered fixed and leaves the review queue.
const GraduationThreshold = 3

// IntervalDays returns the review interval after corrections corrections.
// Counts past the table reuse the last interval.
func IntervalDays(corrections int) int {
	return Intervals[min(max(corrections, 0), len(Intervals)-1)]
}

// nextReview returns the review date for a record with the given
// correction count.
func nextReview(now time.Time, corrections int) time.Time {
	return now.AddDate(0, 0, IntervalDays(corrections))
}
