package encar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// InsuranceSummary holds the accident payout totals from the vehicle
// insurance-history record, in KRW.
type InsuranceSummary struct {
	OwnAccidentKrw   int64
	OtherAccidentKrw int64
}

type insuranceResp struct {
	MyAccidentCost    int64 `json:"myAccidentCost"`
	OtherAccidentCost int64 `json:"otherAccidentCost"`
}

// InsuranceReport fetches the open insurance record for a vehicle. Best
// effort: listings without a published record return an error and the
// caller falls back to the manual report link.
func (c *Client) InsuranceReport(ctx context.Context, vehicleID int64, vehicleNo string) (InsuranceSummary, error) {
	endpoint := fmt.Sprintf("%s/v1/readside/record/vehicle/%d/open?vehicleNo=%s",
		c.BaseURL, vehicleID, url.QueryEscape(vehicleNo))

	var body insuranceResp
	err := c.Client.DoJSON(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return req, nil
	}, &body)
	if err != nil {
		return InsuranceSummary{}, fmt.Errorf("insurance record: %w", err)
	}
	return InsuranceSummary{
		OwnAccidentKrw:   body.MyAccidentCost,
		OtherAccidentKrw: body.OtherAccidentCost,
	}, nil
}
