package approval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ksred/watchdog/internal/queue"
	"github.com/ksred/watchdog/internal/record"
	"github.com/rs/zerolog/log"
)

// Action names every mutating operation the dashboard can trigger
type Action string

const (
	ActionAddNewOrder        Action = "add_new_order"
	ActionCancelOrder        Action = "cancel_order"
	ActionRemoveApproved     Action = "remove_approved"
	ActionRemoveModified     Action = "remove_modified"
	ActionRemoveToBeModified Action = "remove_to_be_modified"
	ActionDropOrder          Action = "drop_order"
	ActionModifyOrder        Action = "modify_order"
	ActionAddP               Action = "add_p"
	ActionAddR               Action = "add_r"
	ActionAddPToBeModified   Action = "add_p_to_be_modified"
	ActionAddRToBeModified   Action = "add_r_to_be_modified"
)

// Gate decides whether an approver may add their flag
type Gate interface {
	ValidatePassword(approver record.Approver, submitted string) bool
}

// Outcome describes one finished action, successful or not
type Outcome struct {
	Action   Action
	Queue    queue.Name
	Row      int
	Approver record.Approver
	Line     string
	Promoted bool
	Success  bool
	Message  string
}

// Observer is told about every action outcome. The audit journal and the
// metrics collector both implement it.
type Observer interface {
	Observe(o Outcome)
}

// Result is what a successful action reports back
type Result struct {
	Message  string `json:"message"`
	Row      int    `json:"row,omitempty"`
	Line     string `json:"line,omitempty"`
	Promoted bool   `json:"promoted"`
}

// NewOrder is a submission from the new order form. Empty price, stop
// loss and take profit default to 0.
type NewOrder struct {
	Symbol     string `json:"symbol" form:"symbol"`
	Type       string `json:"type" form:"type"`
	Lots       string `json:"lots" form:"lots"`
	Price      string `json:"price" form:"price"`
	StopLoss   string `json:"stop_loss" form:"stop_loss"`
	TakeProfit string `json:"take_profit" form:"take_profit"`
}

// ModifyRequest asks for new stop loss / take profit on an open ticket
type ModifyRequest struct {
	Ticket     string `json:"ticket" form:"ticket"`
	StopLoss   string `json:"stop_loss" form:"stop_loss"`
	TakeProfit string `json:"take_profit" form:"take_profit"`
}

// Service runs the dual-approval workflow over the shared queues.
//
// Rows are addressed by their 1-based position in the queue as it is read
// at the start of each action. If the terminal or another operator changes
// the file between page render and click, the same number may point at a
// different record. Every mutation holds the queue's exclusive lock from
// read to write, so two approvals can no longer overwrite each other.
type Service struct {
	store     queue.Store
	gate      Gate
	observers []Observer
}

// NewService creates the workflow service
func NewService(store queue.Store, gate Gate, observers ...Observer) *Service {
	return &Service{
		store:     store,
		gate:      gate,
		observers: observers,
	}
}

// Approve adds the approver's flag to a row of the workflow's source
// queue and promotes the record once both flags are present.
func (s *Service) Approve(w Workflow, row int, approver record.Approver, password string) (*Result, error) {
	logger := log.With().
		Str("service", "approval").
		Str("workflow", w.Name).
		Str("approver", string(approver)).
		Int("row", row).
		Logger()

	outcome := Outcome{Action: w.approveAction(approver), Queue: w.Source, Row: row, Approver: approver}

	if !s.gate.ValidatePassword(approver, password) {
		err := &Error{Kind: KindAuth, Message: "Invalid password for action " + approver.Label(), Err: ErrInvalidPassword}
		logger.Warn().Msg("approval rejected: invalid password")
		s.notify(outcome, nil, err)
		return nil, err
	}

	var result *Result
	err := s.store.Update(w.Source, func(lines []string) ([]string, error) {
		idx, err := rowIndex(row, len(lines))
		if err != nil {
			return nil, err
		}

		rec, err := w.Parse(lines[idx])
		if err != nil {
			return nil, validationError(fmt.Sprintf("Row %d is not a valid record", row), errors.Join(ErrInvalidRecord, err))
		}
		outcome.Line = rec.String()

		if err := rec.Approve(approver); err != nil {
			if errors.Is(err, record.ErrFlagExists) {
				return nil, &Error{
					Kind:    KindConflict,
					Message: fmt.Sprintf("%s already exists in row %d", approver.Label(), row),
					Err:     ErrFlagExists,
				}
			}
			return nil, validationError("Unknown approver", err)
		}

		if !rec.Approvals().Both() {
			lines[idx] = rec.String()
			result = &Result{
				Message: fmt.Sprintf("%s added to row %d", approver.Label(), row),
				Row:     row,
				Line:    lines[idx],
			}
			return lines, nil
		}

		// The destination must hold the record before it leaves the source.
		// If the rewrite below fails the record exists twice, never zero times.
		stripped := rec.Stripped()
		if err := s.store.Append(w.Destination, stripped); err != nil {
			return nil, ioError(fmt.Sprintf("Failed to move order to %s list", w.Target), err)
		}
		result = &Result{
			Message: fmt.Sprintf("%s added to row %d. Order moved to %s list (both P and R flags set)",
				approver.Label(), row, w.Target),
			Row:      row,
			Line:     stripped,
			Promoted: true,
		}
		return removeAt(lines, idx), nil
	})

	if err != nil {
		var werr *Error
		if !errors.As(err, &werr) {
			if result != nil && result.Promoted {
				werr = &Error{
					Kind: KindIO,
					Message: fmt.Sprintf("Order copied to %s list but could not be removed from row %d; remove the duplicate manually",
						w.Target, row),
					Err: errors.Join(ErrPartialPromote, err),
				}
			} else {
				werr = ioError("Failed to update "+strings.ReplaceAll(string(w.Source), "_", " ")+" list", err)
			}
		}
		logger.Warn().Err(werr.Err).Msg(werr.Message)
		s.notify(outcome, nil, werr)
		return nil, werr
	}

	outcome.Promoted = result.Promoted
	outcome.Line = result.Line
	if result.Promoted {
		logger.Info().Str("line", result.Line).Str("destination", string(w.Destination)).Msg("record promoted")
	} else {
		logger.Info().Str("line", result.Line).Msg("approval flag added")
	}
	s.notify(outcome, result, nil)
	return result, nil
}

// CancelOrder removes a row from the orders queue whatever its flags
func (s *Service) CancelOrder(row int) (*Result, error) {
	return s.remove(ActionCancelOrder, queue.Orders, row, "Order row %d canceled and removed")
}

// RemoveApproved removes a row from the approved queue
func (s *Service) RemoveApproved(row int) (*Result, error) {
	return s.remove(ActionRemoveApproved, queue.Approved, row, "Approved order row %d removed")
}

// RemoveModified removes a row from the modified queue
func (s *Service) RemoveModified(row int) (*Result, error) {
	return s.remove(ActionRemoveModified, queue.Modified, row, "Modified order row %d removed")
}

// RemoveToBeModified removes a row from the to_be_modified queue
func (s *Service) RemoveToBeModified(row int) (*Result, error) {
	return s.remove(ActionRemoveToBeModified, queue.ToBeModified, row, "To be modified order row %d removed")
}

func (s *Service) remove(action Action, q queue.Name, row int, format string) (*Result, error) {
	outcome := Outcome{Action: action, Queue: q, Row: row}

	err := s.store.Update(q, func(lines []string) ([]string, error) {
		idx, err := rowIndex(row, len(lines))
		if err != nil {
			return nil, err
		}
		outcome.Line = lines[idx]
		return removeAt(lines, idx), nil
	})
	if err != nil {
		var werr *Error
		if !errors.As(err, &werr) {
			werr = ioError("Failed to update "+strings.ReplaceAll(string(q), "_", " ")+" list", err)
		}
		s.notify(outcome, nil, werr)
		return nil, werr
	}

	result := &Result{Message: fmt.Sprintf(format, row), Row: row, Line: outcome.Line}
	log.Info().
		Str("service", "approval").
		Str("action", string(action)).
		Int("row", row).
		Str("line", outcome.Line).
		Msg("row removed")
	s.notify(outcome, result, nil)
	return result, nil
}

// SubmitOrder validates a new order and appends it to the orders queue
func (s *Service) SubmitOrder(req NewOrder) (*Result, error) {
	outcome := Outcome{Action: ActionAddNewOrder, Queue: queue.Orders}

	order, err := req.validate()
	if err != nil {
		s.notify(outcome, nil, err)
		return nil, err
	}
	outcome.Line = order.String()

	if err := s.store.Append(queue.Orders, outcome.Line); err != nil {
		werr := ioError("Failed to add new order to file", err)
		log.Error().Err(err).Str("line", outcome.Line).Msg("failed to append order")
		s.notify(outcome, nil, werr)
		return nil, werr
	}

	result := &Result{
		Message: fmt.Sprintf("New %s order added for %s", order.Type, order.Symbol),
		Line:    outcome.Line,
	}
	log.Info().Str("service", "approval").Str("line", outcome.Line).Msg("order submitted")
	s.notify(outcome, result, nil)
	return result, nil
}

// DropOrder asks the terminal to close an open ticket
func (s *Service) DropOrder(ticket string) (*Result, error) {
	ticket = strings.TrimSpace(ticket)
	outcome := Outcome{Action: ActionDropOrder, Queue: queue.Dropped, Line: ticket}

	if !isSingleToken(ticket) {
		err := validationError("Valid ticket ID is required", ErrInvalidInput)
		s.notify(outcome, nil, err)
		return nil, err
	}

	if err := s.store.Append(queue.Dropped, ticket); err != nil {
		werr := ioError("Failed to add ticket to dropped orders file", err)
		s.notify(outcome, nil, werr)
		return nil, werr
	}

	result := &Result{Message: fmt.Sprintf("Ticket %s added to dropped orders", ticket), Line: ticket}
	log.Info().Str("service", "approval").Str("ticket", ticket).Msg("ticket queued for drop")
	s.notify(outcome, result, nil)
	return result, nil
}

// ModifyOrder queues a stop loss / take profit change for approval
func (s *Service) ModifyOrder(req ModifyRequest) (*Result, error) {
	outcome := Outcome{Action: ActionModifyOrder, Queue: queue.ToBeModified}

	mod, err := req.validate()
	if err != nil {
		s.notify(outcome, nil, err)
		return nil, err
	}
	outcome.Line = mod.String()

	if err := s.store.Append(queue.ToBeModified, outcome.Line); err != nil {
		werr := ioError("Failed to add modification request to file", err)
		s.notify(outcome, nil, werr)
		return nil, werr
	}

	result := &Result{
		Message: fmt.Sprintf("Modification request for ticket %s added (SL: %s, TP: %s)",
			mod.Ticket, mod.StopLoss, mod.TakeProfit),
		Line: outcome.Line,
	}
	log.Info().Str("service", "approval").Str("line", outcome.Line).Msg("modification submitted")
	s.notify(outcome, result, nil)
	return result, nil
}

func (s *Service) notify(o Outcome, result *Result, err error) {
	if err != nil {
		o.Success = false
		o.Message = err.Error()
	} else {
		o.Success = true
		o.Message = result.Message
	}
	for _, obs := range s.observers {
		obs.Observe(o)
	}
}

func (req NewOrder) validate() (*record.Order, error) {
	symbol := strings.TrimSpace(req.Symbol)
	orderType := strings.TrimSpace(req.Type)
	lots := strings.TrimSpace(req.Lots)

	if symbol == "" {
		return nil, validationError("Symbol is required", ErrInvalidInput)
	}
	if !isSingleToken(symbol) {
		return nil, validationError("Symbol must not contain spaces", ErrInvalidInput)
	}
	if !record.IsValidOrderType(orderType) {
		return nil, validationError("Invalid order type", ErrInvalidInput)
	}

	o := &record.Order{Symbol: symbol, Type: orderType, Lots: lots}
	if lots == "" || !record.IsNumeric(lots) || !o.LotsValue().IsPositive() {
		return nil, validationError("Valid lots value is required", ErrInvalidInput)
	}

	var err error
	if o.Price, err = optionalNumber(req.Price, "Price"); err != nil {
		return nil, err
	}
	if o.StopLoss, err = optionalNumber(req.StopLoss, "Stop Loss"); err != nil {
		return nil, err
	}
	if o.TakeProfit, err = optionalNumber(req.TakeProfit, "Take Profit"); err != nil {
		return nil, err
	}
	return o, nil
}

func (req ModifyRequest) validate() (*record.Modification, error) {
	ticket := strings.TrimSpace(req.Ticket)
	if !isSingleToken(ticket) {
		return nil, validationError("Valid ticket ID is required", ErrInvalidInput)
	}

	m := &record.Modification{Ticket: ticket}
	var err error
	if m.StopLoss, err = optionalNumber(req.StopLoss, "Stop Loss"); err != nil {
		return nil, err
	}
	if m.TakeProfit, err = optionalNumber(req.TakeProfit, "Take Profit"); err != nil {
		return nil, err
	}
	return m, nil
}

// optionalNumber trims v, defaults it to "0" and checks it is numeric
func optionalNumber(v, label string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "0", nil
	}
	if !record.IsNumeric(v) {
		return "", validationError(label+" must be a valid number", ErrInvalidInput)
	}
	return v, nil
}

func isSingleToken(s string) bool {
	return s != "" && len(strings.Fields(s)) == 1
}

func rowIndex(row, n int) (int, error) {
	if row < 1 || row > n {
		return 0, validationError("Invalid row number", ErrInvalidRow)
	}
	return row - 1, nil
}

func removeAt(lines []string, idx int) []string {
	out := make([]string, 0, len(lines)-1)
	out = append(out, lines[:idx]...)
	return append(out, lines[idx+1:]...)
}
