package dashboard

import (
	"strings"

	"github.com/ksred/watchdog/internal/record"
	"github.com/shopspring/decimal"
)

// DefaultPrecision is used for any symbol missing from the precision map
const DefaultPrecision = 2

// DefaultPrecisions holds the decimal places shown for the traded symbols
var DefaultPrecisions = map[string]int{
	"US100.f": 2,
	"EURUSD":  5,
}

// Formatter renders terminal numbers the way the dashboard shows them
type Formatter struct {
	precisions map[string]int
}

// NewFormatter creates a formatter. A nil map selects DefaultPrecisions.
func NewFormatter(precisions map[string]int) Formatter {
	if precisions == nil {
		precisions = DefaultPrecisions
	}
	return Formatter{precisions: precisions}
}

// Precision returns the decimal places for symbol
func (f Formatter) Precision(symbol string) int {
	if p, ok := f.precisions[symbol]; ok {
		return p
	}
	return DefaultPrecision
}

// FormatPrice returns N/A for missing values, 0 for zero and otherwise the
// value at the symbol's precision with thousands separators. An empty
// symbol uses the default precision.
func (f Formatter) FormatPrice(value, symbol string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == record.NotAvailable {
		return record.NotAvailable
	}

	d, err := decimal.NewFromString(value)
	if err != nil || d.IsZero() {
		return "0"
	}

	precision := DefaultPrecision
	if symbol != "" {
		precision = f.Precision(symbol)
	}
	return FormatNumber(d, precision)
}

// FormatAmount formats lots and profit values, which always use two places
func FormatAmount(value string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		d = decimal.Zero
	}
	return FormatNumber(d, 2)
}

// FormatNumber rounds half away from zero and groups the integer part in
// thousands: 15234.5 at 2 places is "15,234.50".
func FormatNumber(d decimal.Decimal, places int) string {
	s := d.StringFixed(int32(places))

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	// -0.00 after rounding
	if strings.Trim(intPart+frac, "0.") == "" {
		sign = ""
	}
	return sign + b.String() + frac
}
