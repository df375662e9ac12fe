package encar

import (
	"fmt"
	"net/url"
	"regexp"

	"carcost-bot/internal/domain"
)

var digitsRe = regexp.MustCompile(`\d+`)

// ParseListingURL extracts the listing id from either URL shape: the mobile
// detail path (first run of digits) or the desktop carid query parameter.
func ParseListingURL(link string) (string, error) {
	if !domain.IsListingLink(link) {
		return "", fmt.Errorf("%w: not a listing link: %q", domain.ErrValidation, link)
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if id := u.Query().Get("carid"); id != "" {
		return id, nil
	}
	if id := digitsRe.FindString(u.Path); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w: no listing id in %q", domain.ErrValidation, link)
}

// PreviewURL is the canonical mobile detail page for a listing id.
func PreviewURL(id string) string {
	return "https://fem.encar.com/cars/detail/" + id
}
