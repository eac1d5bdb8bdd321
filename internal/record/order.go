package record

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrFieldCount    = errors.New("wrong number of fields")
	ErrNotNumeric    = errors.New("field is not a number")
	ErrInvalidType   = errors.New("invalid order type")
	ErrUnknownToken  = errors.New("unrecognized trailing token")
	ErrDuplicateFlag = errors.New("duplicate approval flag")
)

// ValidOrderTypes is the set of order types the terminal understands
var ValidOrderTypes = []string{"buy", "sell", "buylimit", "selllimit", "buystop", "sellstop"}

// ParseError describes why a queue line could not be decoded
type ParseError struct {
	Line  string
	Field string
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("parse %q: %s: %v", e.Line, e.Field, e.Err)
	case e.Token != "":
		return fmt.Sprintf("parse %q: %q: %v", e.Line, e.Token, e.Err)
	default:
		return fmt.Sprintf("parse %q: %v", e.Line, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsValidOrderType checks the type against ValidOrderTypes, ignoring case
func IsValidOrderType(t string) bool {
	lower := strings.ToLower(t)
	for _, v := range ValidOrderTypes {
		if lower == v {
			return true
		}
	}
	return false
}

// IsNumeric reports whether s is a decimal number
func IsNumeric(s string) bool {
	_, err := decimal.NewFromString(s)
	return err == nil
}

// Order is one line of the orders or approved queue.
// Numeric fields keep their submitted text so a line survives
// parse and format byte for byte.
type Order struct {
	Symbol     string `json:"symbol"`
	Type       string `json:"type"`
	Lots       string `json:"lots"`
	Price      string `json:"price"`
	StopLoss   string `json:"stop_loss"`
	TakeProfit string `json:"take_profit"`
	Flags      Flags  `json:"flags"`
}

const orderFields = 6

// ParseOrder decodes `symbol type lots price stopLoss takeProfit [p] [r]`
func ParseOrder(line string) (*Order, error) {
	tokens := strings.Fields(line)
	if len(tokens) < orderFields {
		return nil, &ParseError{Line: line, Err: ErrFieldCount}
	}

	o := &Order{
		Symbol:     tokens[0],
		Type:       tokens[1],
		Lots:       tokens[2],
		Price:      tokens[3],
		StopLoss:   tokens[4],
		TakeProfit: tokens[5],
	}
	if !IsValidOrderType(o.Type) {
		return nil, &ParseError{Line: line, Field: "type", Err: ErrInvalidType}
	}
	for name, v := range map[string]string{
		"lots":        o.Lots,
		"price":       o.Price,
		"stop_loss":   o.StopLoss,
		"take_profit": o.TakeProfit,
	} {
		if !IsNumeric(v) {
			return nil, &ParseError{Line: line, Field: name, Err: ErrNotNumeric}
		}
	}

	flags, err := parseFlagTokens(tokens[orderFields:])
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Line = line
		}
		return nil, err
	}
	o.Flags = flags
	return o, nil
}

// String formats the order with its flags appended
func (o *Order) String() string {
	return strings.Join(append(o.fields(), o.Flags.Tokens()...), " ")
}

// Stripped formats the order without approval flags, which is the
// only form the terminal may read from the approved queue.
func (o *Order) Stripped() string {
	return strings.Join(o.fields(), " ")
}

// Approvals returns the current flag set
func (o *Order) Approvals() Flags { return o.Flags }

// Approve adds the approver's flag
func (o *Order) Approve(a Approver) error { return o.Flags.Add(a) }

func (o *Order) fields() []string {
	return []string{o.Symbol, o.Type, o.Lots, o.Price, o.StopLoss, o.TakeProfit}
}

// LotsValue returns lots as a decimal. Parse has already validated it.
func (o *Order) LotsValue() decimal.Decimal {
	d, _ := decimal.NewFromString(o.Lots)
	return d
}
