package market

import (
	"fmt"
	"time"
)

// Currency is a 3-letter ISO 4217 style code. It carries no structure beyond
// equality; the engine treats codes as opaque identifiers.
type Currency string

// ParseCurrency validates a 3-letter uppercase ASCII code.
func ParseCurrency(s string) (Currency, error) {
	if len(s) != 3 {
		return "", fmt.Errorf("currency code must be 3 characters, got %q", s)
	}
	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return "", fmt.Errorf("currency code must be uppercase ASCII, got %q", s)
		}
	}
	return Currency(s), nil
}

func (c Currency) String() string { return string(c) }

// Cross identifies a quoted currency pair, e.g. USD/EUR. The struct is
// comparable and used directly as a map key; no string slicing anywhere.
type Cross struct {
	Base Currency
	Term Currency
}

// ParseCross parses "USD/EUR" style pair notation.
func ParseCross(s string) (Cross, error) {
	if len(s) != 7 || s[3] != '/' {
		return Cross{}, fmt.Errorf("cross must look like XXX/YYY, got %q", s)
	}
	base, err := ParseCurrency(s[:3])
	if err != nil {
		return Cross{}, err
	}
	term, err := ParseCurrency(s[4:])
	if err != nil {
		return Cross{}, err
	}
	return Cross{Base: base, Term: term}, nil
}

func (c Cross) String() string { return string(c.Base) + "/" + string(c.Term) }

// Quote is one decoded feed record: the price of one unit of Base expressed
// in Term, stamped by the provider.
type Quote struct {
	Cross Cross
	Price float64
	Time  time.Time
}
