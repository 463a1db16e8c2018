package services

import (
	"math"
	"strings"

	"github.com/huangang/rendermarket/internal/engagement"
	"golang.org/x/text/currency"
)

// NormalizeCurrency returns the canonical ISO 4217 code for code, or for
// fallback when code is empty.
func NormalizeCurrency(code, fallback string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		code = fallback
	}
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return "", engagement.InvalidInput("unknown currency " + code)
	}
	return unit.String(), nil
}

// RoundAmount rounds amount to the minor unit of the currency.
func RoundAmount(amount float64, code string) float64 {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return amount
	}
	scale, _ := currency.Standard.Rounding(unit)
	p := math.Pow10(scale)
	return math.Round(amount*p) / p
}

func validateAmount(amount float64, field string) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return engagement.InvalidInput(field + " must be a positive amount")
	}
	return nil
}

// price validates amount and rounds it to the currency.
func price(amount float64, code, field string) (float64, error) {
	if err := validateAmount(amount, field); err != nil {
		return 0, err
	}
	return RoundAmount(amount, code), nil
}
