package record

import (
	"errors"
	"strings"
)

// Modification asks the terminal to move the stop loss and take profit
// of an open ticket. It travels through to_be_modified and modified.
type Modification struct {
	Ticket     string `json:"ticket"`
	StopLoss   string `json:"stop_loss"`
	TakeProfit string `json:"take_profit"`
	Flags      Flags  `json:"flags"`
}

const modificationFields = 3

// ParseModification decodes `ticket stopLoss takeProfit [p] [r]`
func ParseModification(line string) (*Modification, error) {
	tokens := strings.Fields(line)
	if len(tokens) < modificationFields {
		return nil, &ParseError{Line: line, Err: ErrFieldCount}
	}

	m := &Modification{
		Ticket:     tokens[0],
		StopLoss:   tokens[1],
		TakeProfit: tokens[2],
	}
	if !IsNumeric(m.StopLoss) {
		return nil, &ParseError{Line: line, Field: "stop_loss", Err: ErrNotNumeric}
	}
	if !IsNumeric(m.TakeProfit) {
		return nil, &ParseError{Line: line, Field: "take_profit", Err: ErrNotNumeric}
	}

	flags, err := parseFlagTokens(tokens[modificationFields:])
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Line = line
		}
		return nil, err
	}
	m.Flags = flags
	return m, nil
}

func (m *Modification) String() string {
	return strings.Join(append(m.fields(), m.Flags.Tokens()...), " ")
}

// Stripped formats the modification for the modified queue
func (m *Modification) Stripped() string {
	return strings.Join(m.fields(), " ")
}

func (m *Modification) Approvals() Flags { return m.Flags }

func (m *Modification) Approve(a Approver) error { return m.Flags.Add(a) }

func (m *Modification) fields() []string {
	return []string{m.Ticket, m.StopLoss, m.TakeProfit}
}
