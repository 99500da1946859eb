package executor

import (
	"regexp"
	"strconv"
	"strings"
)

// FeePolicy derives the fee rate, in basis points, to sign into an order for
// the market with the given title.
type FeePolicy func(title string) int

var windowPattern = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(AM|PM)\s*-\s*(\d{1,2}):(\d{2})\s*(AM|PM)`)

// TitleWindowFeePolicy charges shortBps for markets whose title names a
// fifteen-minute window such as "Bitcoin Up or Down - 10:00PM-10:15PM ET" and
// zero for everything else.
func TitleWindowFeePolicy(shortBps int) FeePolicy {
	return func(title string) int {
		m := windowPattern.FindStringSubmatch(title)
		if m == nil {
			return 0
		}
		start := clockMinutes(m[1], m[2], m[3])
		end := clockMinutes(m[4], m[5], m[6])

		diff := end - start
		if diff < 0 {
			diff += 24 * 60
		}
		if diff == 15 {
			return shortBps
		}
		return 0
	}
}

// clockMinutes converts a 12-hour clock reading to minutes after midnight.
func clockMinutes(hour, minute, meridiem string) int {
	h, _ := strconv.Atoi(hour)
	m, _ := strconv.Atoi(minute)
	if h == 12 {
		h = 0
	}
	if strings.EqualFold(meridiem, "PM") {
		h += 12
	}
	return h*60 + m
}

// FlatFeePolicy always returns bps.
func FlatFeePolicy(bps int) FeePolicy {
	return func(string) int { return bps }
}
