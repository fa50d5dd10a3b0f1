package jobs

import "time"

// BuildConnectSchedule lists the moments a sensor is expected to connect
// over days consecutive days starting at day. The daily window runs from
// startHour to stopHour inclusive, stepped by intervalMinutes, and wraps
// past midnight when stopHour precedes startHour. Hour 24 is midnight of
// the next day. All moments are UTC.
func BuildConnectSchedule(day time.Time, startHour, stopHour, days, intervalMinutes int) []time.Time {
	y, m, d := day.UTC().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	start := midnight.Add(time.Duration(startHour) * time.Hour)
	end := midnight.Add(time.Duration(stopHour) * time.Hour)
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	step := time.Duration(intervalMinutes) * time.Minute

	var moments []time.Time
	for ; days > 0; days-- {
		for moment := start; !moment.After(end); moment = moment.Add(step) {
			moments = append(moments, moment)
			if step <= 0 {
				break
			}
		}
		start = start.AddDate(0, 0, 1)
		end = end.AddDate(0, 0, 1)
	}
	return moments
}

// CountMoments counts moments within [from, to].
func CountMoments(moments []time.Time, from, to time.Time) int {
	n := 0
	for _, m := range moments {
		if !m.Before(from) && !m.After(to) {
			n++
		}
	}
	return n
}
