// Package contract handles option contract ticker parsing and validation.
// A ticker carries the underlying symbol, the exercise style/payoff flag,
// the strike, and the expiry date; parsing resolves the legacy two-letter
// style flags (ce/pe/ca/pa) into the closed lattice.Style enum so strings
// never travel past this boundary.
package contract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/optx/lattice-engine/internal/lattice"
)

// tickerRegex matches: OPTX-{underlying}-{CE|PE|CA|PA}-{strike}-{YYYYMMDD}
// Example: OPTX-ACME-CE-100-20261218
var tickerRegex = regexp.MustCompile(
	`^OPTX-([A-Z0-9]+)-(CE|PE|CA|PA)-([0-9]+(?:\.[0-9]+)?)-(\d{8})$`,
)

var (
	ErrInvalidTicker = errors.New("contract: invalid ticker format")
	ErrInvalidStrike = errors.New("contract: invalid strike")
)

// Contract represents a parsed option contract.
type Contract struct {
	Ticker     string          `json:"ticker"`
	Underlying string          `json:"underlying"`
	Style      lattice.Style   `json:"style"`
	Strike     decimal.Decimal `json:"strike"`
	Expiry     time.Time       `json:"expiry"`
}

// ParseTicker parses and validates an option contract ticker string.
// Format: OPTX-{underlying}-{CE|PE|CA|PA}-{strike}-{YYYYMMDD}
func ParseTicker(ticker string) (*Contract, error) {
	matches := tickerRegex.FindStringSubmatch(ticker)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected OPTX-{underlying}-{CE|PE|CA|PA}-{strike}-{YYYYMMDD})",
			ErrInvalidTicker, ticker)
	}

	underlying := matches[1]
	styleTag := matches[2]
	strikeStr := matches[3]
	dateStr := matches[4]

	style, err := lattice.ParseStyle(styleTag)
	if err != nil {
		return nil, fmt.Errorf("%w: style flag %s", ErrInvalidTicker, styleTag)
	}

	strike, err := decimal.NewFromString(strikeStr)
	if err != nil || strike.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStrike, strikeStr)
	}

	expiry, err := time.Parse("20060102", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %s", ErrInvalidTicker, dateStr)
	}

	return &Contract{
		Ticker:     ticker,
		Underlying: underlying,
		Style:      style,
		Strike:     strike,
		Expiry:     expiry,
	}, nil
}

// Ticker assembles the canonical ticker string for a contract.
func Ticker(underlying string, style lattice.Style, strike decimal.Decimal, expiry time.Time) string {
	var tag string
	switch style {
	case lattice.EuropeanCall:
		tag = "CE"
	case lattice.EuropeanPut:
		tag = "PE"
	case lattice.AmericanCall:
		tag = "CA"
	case lattice.AmericanPut:
		tag = "PA"
	}
	return fmt.Sprintf("OPTX-%s-%s-%s-%s",
		strings.ToUpper(underlying), tag, strike.String(), expiry.Format("20060102"))
}

// IntrinsicValue is the contract's immediate exercise payoff at the given
// underlying price.
func (c *Contract) IntrinsicValue(underlyingPrice decimal.Decimal) decimal.Decimal {
	var intrinsic decimal.Decimal
	if c.Style.IsCall() {
		intrinsic = underlyingPrice.Sub(c.Strike)
	} else {
		intrinsic = c.Strike.Sub(underlyingPrice)
	}
	if intrinsic.IsNegative() {
		return decimal.Zero
	}
	return intrinsic
}

// InTheMoney reports whether exercising now pays anything.
func (c *Contract) InTheMoney(underlyingPrice decimal.Decimal) bool {
	if c.Style.IsCall() {
		return underlyingPrice.GreaterThan(c.Strike)
	}
	return underlyingPrice.LessThan(c.Strike)
}

// YearsToExpiry converts the contract's remaining life to year-fraction
// time, the unit the lattice model's maturity is expressed in.
func (c *Contract) YearsToExpiry(now time.Time) float64 {
	return c.Expiry.Sub(now).Hours() / 24 / 365
}
