package orders

import (
	"fmt"
	"strings"
	"time"
)

// PriceSelector picks the target price relative to the current market.
type PriceSelector string

const (
	PriceMarket PriceSelector = "market"
	PricePlus1  PriceSelector = "+1%"
	PricePlus5  PriceSelector = "+5%"
	PricePlus10 PriceSelector = "+10%"
	PriceCustom PriceSelector = "custom"
)

var priceMultipliers = map[PriceSelector]float64{
	PriceMarket: 1.0,
	PricePlus1:  1.01,
	PricePlus5:  1.05,
	PricePlus10: 1.10,
}

// Multiplier returns the market multiplier; custom has none.
func (s PriceSelector) Multiplier() (float64, bool) {
	m, ok := priceMultipliers[s]
	return m, ok
}

func ParsePriceSelector(raw string) (PriceSelector, error) {
	s := PriceSelector(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return PriceMarket, nil
	}
	if s == PriceCustom {
		return s, nil
	}
	if _, ok := priceMultipliers[s]; ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown price selector %q", raw)
}

// ExpirySelector names a validity window.
type ExpirySelector string

const (
	Expiry1Day   ExpirySelector = "1day"
	Expiry1Week  ExpirySelector = "1week"
	Expiry1Month ExpirySelector = "1month"
	Expiry1Year  ExpirySelector = "1year"
)

const day = 24 * time.Hour

var expiryDurations = map[ExpirySelector]time.Duration{
	Expiry1Day:   day,
	Expiry1Week:  7 * day,
	Expiry1Month: 30 * day,
	Expiry1Year:  365 * day,
}

func (s ExpirySelector) Duration() (time.Duration, bool) {
	d, ok := expiryDurations[s]
	return d, ok
}

func ParseExpirySelector(raw string) (ExpirySelector, error) {
	s := ExpirySelector(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return Expiry1Week, nil
	}
	if _, ok := expiryDurations[s]; ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown expiry selector %q", raw)
}
