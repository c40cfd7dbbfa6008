package services

import (
	"time"

	"github.com/rickar/cal/v2"
)

// businessCal treats Monday through Friday as workdays. Stage durations are
// expressed in business days, so weekends never count against a team.
var businessCal = cal.NewBusinessCalendar()

// AddBusinessDays returns the date that is n workdays after start.
func AddBusinessDays(start time.Time, n int) time.Time {
	d := start
	for added := 0; added < n; {
		d = d.AddDate(0, 0, 1)
		if businessCal.IsWorkday(d) {
			added++
		}
	}
	return d
}

// BusinessDaysUntil counts the workdays between from and to, exclusive of
// from. Returns 0 when to is not after from.
func BusinessDaysUntil(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	days := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if businessCal.IsWorkday(d) {
			days++
		}
	}
	return days
}
