package domain

import "time"

// AgeBucket is the age category of the destination customs tariff schedule.
// The string values are the codes the tariff calculator expects.
type AgeBucket string

const (
	AgeUnder3 AgeBucket = "0-3"
	Age3To5   AgeBucket = "3-5"
	Age5To7   AgeBucket = "5-7"
	AgeOver7  AgeBucket = "7-0"
)

// ClassifyAge buckets a vehicle by its age in whole months relative to now.
// Boundary months (exactly 36, 60, 84) fall into the older bucket.
func ClassifyAge(year, month int, now time.Time) AgeBucket {
	months := (now.Year()-year)*12 + int(now.Month()) - month
	switch {
	case months < 36:
		return AgeUnder3
	case months < 60:
		return Age3To5
	case months < 84:
		return Age5To7
	default:
		return AgeOver7
	}
}

func (a AgeBucket) Label() string {
	switch a {
	case AgeUnder3:
		return "до 3 лет"
	case Age3To5:
		return "от 3 до 5 лет"
	case Age5To7:
		return "от 5 до 7 лет"
	default:
		return "от 7 лет"
	}
}
