package record

import (
	"errors"
	"strings"
)

var (
	ErrUnknownApprover = errors.New("unknown approver")
	ErrFlagExists      = errors.New("flag already exists")
)

// Approver identifies one of the two people whose sign-off promotes a record.
type Approver string

const (
	ApproverP Approver = "p"
	ApproverR Approver = "r"
)

// Approvers lists every approver identity in a stable order
var Approvers = []Approver{ApproverP, ApproverR}

// ParseApprover accepts "p" or "r" in either case
func ParseApprover(s string) (Approver, error) {
	switch Approver(strings.ToLower(strings.TrimSpace(s))) {
	case ApproverP:
		return ApproverP, nil
	case ApproverR:
		return ApproverR, nil
	}
	return "", ErrUnknownApprover
}

// Label is the uppercase name shown to operators ("P" or "R")
func (a Approver) Label() string {
	return strings.ToUpper(string(a))
}

// Flags is the set of approvals attached to a queued record.
type Flags struct {
	P bool `json:"p"`
	R bool `json:"r"`
}

// Has reports whether the approver has already signed off
func (f Flags) Has(a Approver) bool {
	switch a {
	case ApproverP:
		return f.P
	case ApproverR:
		return f.R
	}
	return false
}

// Add sets the approver's flag. Adding a flag twice is an error so a
// repeated click cannot be counted as a second approval.
func (f *Flags) Add(a Approver) error {
	if f.Has(a) {
		return ErrFlagExists
	}
	switch a {
	case ApproverP:
		f.P = true
	case ApproverR:
		f.R = true
	default:
		return ErrUnknownApprover
	}
	return nil
}

// Both reports whether the record is ready for promotion
func (f Flags) Both() bool {
	return f.P && f.R
}

// Empty reports whether no approver has signed off yet
func (f Flags) Empty() bool {
	return !f.P && !f.R
}

// Tokens renders the flags as trailing line tokens
func (f Flags) Tokens() []string {
	tokens := make([]string, 0, 2)
	if f.P {
		tokens = append(tokens, string(ApproverP))
	}
	if f.R {
		tokens = append(tokens, string(ApproverR))
	}
	return tokens
}

// parseFlagTokens reads the trailing tokens after the positional fields.
// Anything other than a single "p" or "r" rejects the whole line.
func parseFlagTokens(tokens []string) (Flags, error) {
	var f Flags
	for _, tok := range tokens {
		a := Approver(tok)
		if a != ApproverP && a != ApproverR {
			return Flags{}, &ParseError{Token: tok, Err: ErrUnknownToken}
		}
		if err := f.Add(a); err != nil {
			return Flags{}, &ParseError{Token: tok, Err: ErrDuplicateFlag}
		}
	}
	return f, nil
}
