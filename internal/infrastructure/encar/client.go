package encar

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"carcost-bot/internal/application"
	"carcost-bot/internal/domain"
	"carcost-bot/internal/infrastructure/httpx"
)

const (
	vehiclePath = "/v1/readside/vehicle/"
	maxPhotos   = 10
)

// Client fetches vehicle listings from the readside API and normalizes the
// heterogeneous upstream fields into a domain.VehicleListing.
type Client struct {
	BaseURL   string
	PhotoBase string
	Referer   string
	Client    *httpx.Client
}

var _ application.ListingFetcher = (*Client)(nil)

type vehicleResp struct {
	VehicleID int64  `json:"vehicleId"`
	VehicleNo string `json:"vehicleNo"`
	Category  struct {
		ManufacturerEnglishName string `json:"manufacturerEnglishName"`
		ModelGroupEnglishName   string `json:"modelGroupEnglishName"`
		GradeDetailEnglishName  string `json:"gradeDetailEnglishName"`
		YearMonth               string `json:"yearMonth"`
		FormYear                string `json:"formYear"`
	} `json:"category"`
	Spec struct {
		Mileage          int    `json:"mileage"`
		TransmissionName string `json:"transmissionName"`
		Displacement     int    `json:"displacement"`
		BodyName         string `json:"bodyName"`
		Contents         string `json:"contents"`
	} `json:"spec"`
	Advertisement struct {
		Price    int64  `json:"price"`
		Contents string `json:"contents"`
	} `json:"advertisement"`
	Photos []struct {
		Path string `json:"path"`
	} `json:"photos"`
}

func (c *Client) Fetch(ctx context.Context, id string) (domain.VehicleListing, error) {
	var body vehicleResp
	err := c.Client.DoJSON(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, c.BaseURL+vehiclePath+id, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return req, nil
	}, &body)
	if err != nil {
		return domain.VehicleListing{}, fmt.Errorf("%w: fetch %s: %v", domain.ErrListingUnavailable, id, err)
	}

	// The price/engine-size/date triple is the minimum for a quotation.
	reg, regErr := parseYearMonth(body.Category.YearMonth)
	if body.Advertisement.Price <= 0 || body.Spec.Displacement <= 0 || regErr != nil {
		return domain.VehicleListing{}, fmt.Errorf("%w: listing %s has no usable price/engine/date", domain.ErrListingUnavailable, id)
	}

	listing := domain.VehicleListing{
		ID:           id,
		Make:         body.Category.ManufacturerEnglishName,
		Model:        body.Category.ModelGroupEnglishName,
		Trim:         body.Category.GradeDetailEnglishName,
		PriceWon10k:  body.Advertisement.Price,
		EngineCc:     body.Spec.Displacement,
		BodyType:     body.Spec.BodyName,
		MileageKm:    body.Spec.Mileage,
		Transmission: normalizeTransmission(body.Spec.TransmissionName),
		Registered:   reg,
		Manufactured: extractYearMonth(body.Spec.Contents, body.Advertisement.Contents),
		VehicleID:    body.VehicleID,
		VehicleNo:    body.VehicleNo,
	}
	for _, p := range body.Photos {
		if len(listing.PhotoURLs) == maxPhotos {
			break
		}
		if u := c.photoURL(p.Path); u != "" {
			listing.PhotoURLs = append(listing.PhotoURLs, u)
		}
	}
	return listing, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	if c.Referer != "" {
		req.Header.Set("Referer", c.Referer)
	}
}

func (c *Client) photoURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return strings.TrimRight(c.PhotoBase, "/") + "/" + strings.TrimLeft(path, "/")
}

// yearMonth arrives as "YYYYMM".
func parseYearMonth(s string) (domain.YearMonth, error) {
	if len(s) < 6 {
		return domain.YearMonth{}, fmt.Errorf("yearMonth too short: %q", s)
	}
	var y, m int
	if _, err := fmt.Sscanf(s[:6], "%4d%2d", &y, &m); err != nil {
		return domain.YearMonth{}, fmt.Errorf("yearMonth %q: %w", s, err)
	}
	if m < 1 || m > 12 {
		return domain.YearMonth{}, fmt.Errorf("yearMonth %q: month out of range", s)
	}
	return domain.YearMonth{Year: y, Month: m}, nil
}

// The transmission label is Korean free text; anything mentioning 오토
// (auto) counts as automatic.
func normalizeTransmission(label string) domain.Transmission {
	if strings.Contains(label, "오토") || strings.Contains(strings.ToLower(label), "auto") {
		return domain.TransmissionAutomatic
	}
	return domain.TransmissionManual
}
