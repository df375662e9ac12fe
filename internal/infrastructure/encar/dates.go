package encar

import (
	"regexp"
	"strconv"

	"carcost-bot/internal/domain"
)

// Manufacturing dates appear as free-text annotations in several formats.
// Patterns are tried in priority order across the given fields; the first
// match wins. Each pattern captures year then month except mmSlashYyyy.
var (
	yyyyDotMm   = regexp.MustCompile(`(20\d{2})[.\-/](\d{1,2})\b`)
	koreanDate  = regexp.MustCompile(`(20\d{2})년\s*(\d{1,2})월`)
	mmSlashYyyy = regexp.MustCompile(`\b(\d{1,2})/(20\d{2})\b`)
)

func extractYearMonth(fields ...string) *domain.YearMonth {
	for _, re := range []*regexp.Regexp{yyyyDotMm, koreanDate} {
		for _, f := range fields {
			if m := re.FindStringSubmatch(f); m != nil {
				if ym := makeYearMonth(m[1], m[2]); ym != nil {
					return ym
				}
			}
		}
	}
	for _, f := range fields {
		if m := mmSlashYyyy.FindStringSubmatch(f); m != nil {
			if ym := makeYearMonth(m[2], m[1]); ym != nil {
				return ym
			}
		}
	}
	return nil
}

func makeYearMonth(ys, ms string) *domain.YearMonth {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	if m < 1 || m > 12 {
		return nil
	}
	return &domain.YearMonth{Year: y, Month: m}
}
