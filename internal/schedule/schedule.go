// Package schedule generates the scheduled session dates for a course
// activity: the same weekday and start time each week between the
// course start and end dates.
package schedule

import (
	"errors"
	"time"
)

// TODO: skip UK bank holidays once a holiday calendar source is wired in.

// SessionDates returns every session instant of a course, walking
// week by week from start until either the wanted count is reached or
// the end date is passed. The start instant itself is session one.
func SessionDates(start, end time.Time, sessions int) ([]time.Time, error) {
	if sessions <= 0 {
		return nil, errors.New("session count must be positive")
	}
	if end.Before(start) {
		return nil, errors.New("course end precedes course start")
	}

	dates := make([]time.Time, 0, sessions)
	for current := start; len(dates) < sessions && !current.After(end); current = current.AddDate(0, 0, 7) {
		dates = append(dates, current)
	}
	return dates, nil
}

// CourseEnd returns the instant of the final session of a course with
// the given session count, one session per week.
func CourseEnd(start time.Time, sessions int) (time.Time, error) {
	if sessions <= 0 {
		return time.Time{}, errors.New("session count must be positive")
	}
	return start.AddDate(0, 0, 7*(sessions-1)), nil
}
