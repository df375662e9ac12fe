package domain

import "errors"

var (
	ErrRateUnavailable    = errors.New("exchange rate unavailable")
	ErrListingUnavailable = errors.New("listing unavailable")
	ErrTariffUnavailable  = errors.New("tariff service unavailable")
	ErrValidation         = errors.New("validation failed")
	ErrCrmUnavailable     = errors.New("crm unavailable")
)
