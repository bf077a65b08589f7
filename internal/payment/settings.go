package payment

import (
	"log/slog"
	"strings"

	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// settings is the configuration every adapter carries. The gateway sets the
// redirect URLs and the sandbox flag before the first call.
type settings struct {
	credentials domain.Credentials
	options     domain.Options
	successUrl  string
	cancelUrl   string
	sandbox     bool
	logger      *slog.Logger
}

func newSettings(credentials domain.Credentials, options domain.Options, logger *slog.Logger) settings {
	if credentials == nil {
		credentials = domain.Credentials{}
	}

	if options == nil {
		options = domain.Options{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return settings{
		credentials: credentials,
		options:     options,
		logger:      logger,
	}
}

func (s *settings) SuccessURL() string {
	return s.successUrl
}

func (s *settings) CancelURL() string {
	return s.cancelUrl
}

func (s *settings) SetSuccessURL(url string) {
	s.successUrl = url
}

func (s *settings) SetCancelURL(url string) {
	s.cancelUrl = url
}

func (s *settings) SetSandbox(sandbox bool) {
	s.sandbox = sandbox
}

// zeroDecimalCurrencies have no minor unit, their amounts are sent as is.
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

var hundred = decimal.NewFromInt(100)

// toMinorUnits converts a human decimal amount into the integer minor units
// (cents) the card networks expect, rounding half away from zero.
func toMinorUnits(amount decimal.Decimal, currencyCode string) int64 {
	if zeroDecimalCurrencies[strings.ToUpper(currencyCode)] {
		return amount.Round(0).IntPart()
	}

	return amount.Mul(hundred).Round(0).IntPart()
}

// formatAmount renders an amount the way order based APIs expect it in JSON
// string fields, e.g. "123.45".
func formatAmount(amount decimal.Decimal, currencyCode string) string {
	if zeroDecimalCurrencies[strings.ToUpper(currencyCode)] {
		return amount.StringFixed(0)
	}

	return amount.StringFixed(2)
}

func refundAmount(payment *domain.Payment, amount *decimal.Decimal) decimal.Decimal {
	if amount == nil {
		return payment.Amount
	}

	return *amount
}

func refundStatus(payment *domain.Payment, amount *decimal.Decimal) domain.Status {
	if payment.IsFullRefund(amount) {
		return domain.StatusRefunded
	}

	return domain.StatusPartiallyRefunded
}
