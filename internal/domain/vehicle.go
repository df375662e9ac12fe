package domain

import (
	"regexp"
	"time"
)

var listingHostRe = regexp.MustCompile(`^https?://(www|fem)\.encar\.com/`)

// IsListingLink reports whether the text looks like a listing URL at all.
// Both the lead flow and the transports accept the same URL shapes.
func IsListingLink(link string) bool { return listingHostRe.MatchString(link) }

type Transmission string

const (
	TransmissionAutomatic Transmission = "automatic"
	TransmissionManual    Transmission = "manual"
)

// YearMonth is a calendar month, used for registration and manufacturing dates.
type YearMonth struct {
	Year  int
	Month int
}

// VehicleListing is the normalized view of one listing, created fresh per
// quotation request and never mutated after fetch.
type VehicleListing struct {
	ID           string
	Make         string
	Model        string
	Trim         string
	PriceWon10k  int64 // advertised price, units of 10,000 KRW
	EngineCc     int
	BodyType     string
	MileageKm    int
	Transmission Transmission
	Registered   YearMonth
	Manufactured *YearMonth // nil when the free-text date could not be resolved
	PhotoURLs    []string

	// Identifiers needed for the insurance-history endpoint.
	VehicleID int64
	VehicleNo string
}

// PriceKrw is the advertised price in whole KRW.
func (v VehicleListing) PriceKrw() int64 { return v.PriceWon10k * 10000 }

// AgeBucket classifies the vehicle by manufacturing date when it was
// resolved, otherwise by registration date.
func (v VehicleListing) AgeBucket(now time.Time) AgeBucket {
	ym := v.Registered
	if v.Manufactured != nil {
		ym = *v.Manufactured
	}
	return ClassifyAge(ym.Year, ym.Month, now)
}
