// Package dashboard assembles the read-only views of the queues and the
// terminal's status files. Every call re-reads the files; nothing is cached.
package dashboard

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ksred/watchdog/internal/approval"
	"github.com/ksred/watchdog/internal/queue"
	"github.com/ksred/watchdog/internal/record"
	"github.com/shopspring/decimal"
)

// TimestampLayout is how server time is shown next to each view
const TimestampLayout = "2006-01-02 15:04:05"

// Options configures the views
type Options struct {
	RefreshInterval time.Duration
	Location        *time.Location
	Precisions      map[string]int
	Symbols         []string
	Title           string
}

// Row is one line of a queue, decoded when possible. Invalid rows are
// still listed so an operator can remove them.
type Row struct {
	Number       int                  `json:"number"`
	Line         string               `json:"line"`
	Valid        bool                 `json:"valid"`
	Error        string               `json:"error,omitempty"`
	Order        *record.Order        `json:"order,omitempty"`
	Modification *record.Modification `json:"modification,omitempty"`
	Actions      []approval.Action    `json:"actions"`
}

// QueueView lists a queue in file order
type QueueView struct {
	Queue             queue.Name `json:"queue"`
	Rows              []Row      `json:"rows"`
	Count             int        `json:"count"`
	RefreshIntervalMS int64      `json:"refresh_interval_ms"`
}

// PositionDisplay holds the formatted columns of a position
type PositionDisplay struct {
	Lots       string `json:"lots"`
	OpenPrice  string `json:"open_price"`
	StopLoss   string `json:"stop_loss"`
	TakeProfit string `json:"take_profit"`
	Profit     string `json:"profit"`
}

type PositionView struct {
	record.Position
	Display        PositionDisplay `json:"display"`
	ProfitPositive bool            `json:"profit_positive"`
}

type SnapshotView struct {
	Rows              []PositionView `json:"rows"`
	Count             int            `json:"count"`
	RefreshIntervalMS int64          `json:"refresh_interval_ms"`
}

// TicketOption is an open ticket offered by the drop and modify selectors
type TicketOption struct {
	Ticket              string `json:"ticket"`
	Symbol              string `json:"symbol"`
	Type                string `json:"type"`
	Label               string `json:"label"`
	StopLoss            string `json:"stop_loss"`
	TakeProfit          string `json:"take_profit"`
	PendingModification bool   `json:"pending_modification"`
	AppliedModification bool   `json:"applied_modification"`
	DropQueued          bool   `json:"drop_queued"`
}

type TicketsView struct {
	Rows              []TicketOption `json:"rows"`
	Count             int            `json:"count"`
	RefreshIntervalMS int64          `json:"refresh_interval_ms"`
}

// AccountProfit is read from account_log.txt. Available is false when the
// file is missing or carries no profit line.
type AccountProfit struct {
	Available         bool   `json:"available"`
	Profit            string `json:"profit"`
	Formatted         string `json:"formatted"`
	Positive          bool   `json:"positive"`
	OpenOrders        int    `json:"open_orders"`
	RefreshIntervalMS int64  `json:"refresh_interval_ms"`
}

// HistoryProfit is read from order_history_log.txt
type HistoryProfit struct {
	Available         bool   `json:"available"`
	TotalNetProfit    string `json:"total_net_profit"`
	Formatted         string `json:"formatted"`
	Positive          bool   `json:"positive"`
	ClosedOrders      int    `json:"closed_orders"`
	RefreshIntervalMS int64  `json:"refresh_interval_ms"`
}

// StatusFile is the raw text of a terminal status file
type StatusFile struct {
	Name    queue.Name `json:"name"`
	Found   bool       `json:"found"`
	Content string     `json:"content"`
	Lines   []string   `json:"lines"`
	Message string     `json:"message,omitempty"`
}

type StatusView struct {
	Files             []StatusFile `json:"files"`
	Timestamp         string       `json:"timestamp"`
	RefreshIntervalMS int64        `json:"refresh_interval_ms"`
}

// Dashboard is everything the page needs for one poll
type Dashboard struct {
	Title             string                    `json:"title"`
	Timestamp         string                    `json:"timestamp"`
	Timezone          string                    `json:"timezone"`
	Symbols           []string                  `json:"symbols"`
	OrderTypes        []string                  `json:"order_types"`
	Precisions        map[string]int            `json:"precisions"`
	Queues            map[queue.Name]*QueueView `json:"queues"`
	Snapshot          *SnapshotView             `json:"snapshot"`
	Tickets           []TicketOption            `json:"tickets"`
	Account           *AccountProfit            `json:"account"`
	History           *HistoryProfit            `json:"history"`
	RefreshIntervalMS int64                     `json:"refresh_interval_ms"`
}

var notFoundMessages = map[queue.Name]string{
	queue.AccountLog:      "Account log file not found.",
	queue.MarketLog:       "Market log file not found.",
	queue.OrderHistoryLog: "Order history log file not found.",
}

// Service builds the read side of the dashboard
type Service struct {
	store  queue.Store
	opts   Options
	format Formatter
	now    func() time.Time
}

// NewService creates the view assembler
func NewService(store queue.Store, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Second
	}
	return &Service{
		store:  store,
		opts:   opts,
		format: NewFormatter(opts.Precisions),
		now:    time.Now,
	}
}

// Formatter returns the price formatter used by the views
func (s *Service) Formatter() Formatter {
	return s.format
}

// Queue lists one queue with its rows decoded
func (s *Service) Queue(q queue.Name) (*QueueView, error) {
	lines, err := s.store.Lines(q)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s queue: %w", q, err)
	}

	rows := make([]Row, 0, len(lines))
	for i, line := range lines {
		rows = append(rows, decodeRow(q, i+1, line))
	}

	return &QueueView{
		Queue:             q,
		Rows:              rows,
		Count:             len(rows),
		RefreshIntervalMS: s.refreshMS(),
	}, nil
}

func decodeRow(q queue.Name, number int, line string) Row {
	row := Row{Number: number, Line: line, Actions: []approval.Action{}}

	var err error
	switch q {
	case queue.Orders, queue.Approved:
		row.Order, err = record.ParseOrder(line)
	case queue.ToBeModified, queue.Modified:
		row.Modification, err = record.ParseModification(line)
	case queue.Dropped:
		if len(strings.Fields(line)) != 1 {
			err = errors.New("ticket must be a single token")
		}
	}
	if err != nil {
		row.Error = err.Error()
	} else {
		row.Valid = true
	}

	switch q {
	case queue.Orders:
		if row.Order != nil {
			row.Actions = flagActions(row.Order.Flags, approval.ActionAddP, approval.ActionAddR)
		}
		row.Actions = append(row.Actions, approval.ActionCancelOrder)
	case queue.ToBeModified:
		if row.Modification != nil {
			row.Actions = flagActions(row.Modification.Flags, approval.ActionAddPToBeModified, approval.ActionAddRToBeModified)
		}
		row.Actions = append(row.Actions, approval.ActionRemoveToBeModified)
	case queue.Approved:
		row.Actions = append(row.Actions, approval.ActionRemoveApproved)
	case queue.Modified:
		row.Actions = append(row.Actions, approval.ActionRemoveModified)
	}
	return row
}

// flagActions returns the flag actions still open on a record
func flagActions(flags record.Flags, addP, addR approval.Action) []approval.Action {
	actions := []approval.Action{}
	if !flags.P {
		actions = append(actions, addP)
	}
	if !flags.R {
		actions = append(actions, addR)
	}
	return actions
}

// Snapshot returns the open positions from orders_log.txt
func (s *Service) Snapshot() (*SnapshotView, error) {
	positions, err := s.positions()
	if err != nil {
		return nil, err
	}

	rows := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, s.positionView(p))
	}
	return &SnapshotView{Rows: rows, Count: len(rows), RefreshIntervalMS: s.refreshMS()}, nil
}

func (s *Service) positionView(p record.Position) PositionView {
	lots := p.Lots
	if lots != record.NotAvailable {
		lots = FormatAmount(lots)
	}
	return PositionView{
		Position: p,
		Display: PositionDisplay{
			Lots:       lots,
			OpenPrice:  s.format.FormatPrice(p.OpenPrice, p.Symbol),
			StopLoss:   s.format.FormatPrice(p.StopLoss, p.Symbol),
			TakeProfit: s.format.FormatPrice(p.TakeProfit, p.Symbol),
			Profit:     FormatAmount(p.Profit),
		},
		ProfitPositive: !parseDecimal(p.Profit).IsNegative(),
	}
}

func (s *Service) positions() ([]record.Position, error) {
	content, _, err := s.readOptional(queue.OrdersLog)
	if err != nil {
		return nil, err
	}
	return record.ParseSnapshot(content), nil
}

// Tickets returns the open tickets with markers for requests already queued
func (s *Service) Tickets() (*TicketsView, error) {
	rows, err := s.tickets()
	if err != nil {
		return nil, err
	}
	return &TicketsView{Rows: rows, Count: len(rows), RefreshIntervalMS: s.refreshMS()}, nil
}

func (s *Service) tickets() ([]TicketOption, error) {
	positions, err := s.positions()
	if err != nil {
		return nil, err
	}

	pending, err := s.ticketSet(queue.ToBeModified)
	if err != nil {
		return nil, err
	}
	applied, err := s.ticketSet(queue.Modified)
	if err != nil {
		return nil, err
	}
	dropped, err := s.ticketSet(queue.Dropped)
	if err != nil {
		return nil, err
	}

	options := make([]TicketOption, 0, len(positions))
	for _, p := range positions {
		options = append(options, TicketOption{
			Ticket:              p.Ticket,
			Symbol:              p.Symbol,
			Type:                p.Type,
			Label:               fmt.Sprintf("%s - %s (%s)", p.Ticket, p.Symbol, p.Type),
			StopLoss:            p.StopLoss,
			TakeProfit:          p.TakeProfit,
			PendingModification: pending[p.Ticket],
			AppliedModification: applied[p.Ticket],
			DropQueued:          dropped[p.Ticket],
		})
	}
	return options, nil
}

// ticketSet collects the first field of every line of q
func (s *Service) ticketSet(q queue.Name) (map[string]bool, error) {
	lines, err := s.store.Lines(q)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s queue: %w", q, err)
	}
	set := make(map[string]bool, len(lines))
	for _, line := range lines {
		if fields := strings.Fields(line); len(fields) > 0 {
			set[fields[0]] = true
		}
	}
	return set, nil
}

// AccountProfit returns the floating profit and open order count
func (s *Service) AccountProfit() (*AccountProfit, error) {
	content, found, err := s.readOptional(queue.AccountLog)
	if err != nil {
		return nil, err
	}

	result := &AccountProfit{RefreshIntervalMS: s.refreshMS()}
	if !found {
		return result, nil
	}
	if profit, ok := ExtractAccountProfit(content); ok {
		result.Available = true
		result.Profit = profit
		result.Formatted = FormatAmount(profit)
		result.Positive = !parseDecimal(profit).IsNegative()
	}
	if n, ok := ExtractAccountOrders(content); ok {
		result.OpenOrders = n
	}
	return result, nil
}

// HistoryProfit returns the total net profit and the closed order count
func (s *Service) HistoryProfit() (*HistoryProfit, error) {
	content, found, err := s.readOptional(queue.OrderHistoryLog)
	if err != nil {
		return nil, err
	}

	result := &HistoryProfit{RefreshIntervalMS: s.refreshMS()}
	if !found {
		return result, nil
	}
	if profit, ok := ExtractTotalNetProfit(content); ok {
		result.Available = true
		result.TotalNetProfit = profit
		result.Formatted = FormatAmount(profit)
		result.Positive = !parseDecimal(profit).IsNegative()
	}
	result.ClosedOrders = CountClosedOrders(content)
	return result, nil
}

// AccountStatus returns the account log followed by the market log
func (s *Service) AccountStatus() (*StatusView, error) {
	return s.status(queue.AccountLog, queue.MarketLog)
}

// HistoryStatus returns the order history log
func (s *Service) HistoryStatus() (*StatusView, error) {
	return s.status(queue.OrderHistoryLog)
}

func (s *Service) status(names ...queue.Name) (*StatusView, error) {
	view := &StatusView{
		Files:             make([]StatusFile, 0, len(names)),
		Timestamp:         s.Timestamp(),
		RefreshIntervalMS: s.refreshMS(),
	}
	for _, name := range names {
		content, found, err := s.readOptional(name)
		if err != nil {
			return nil, err
		}
		file := StatusFile{Name: name, Found: found, Content: content, Lines: statusLines(content)}
		if !found {
			file.Message = notFoundMessages[name]
		}
		view.Files = append(view.Files, file)
	}
	return view, nil
}

// statusLines splits a status file on newlines and on the "| " separators
// the terminal uses inside a line.
func statusLines(content string) []string {
	lines := []string{}
	for _, line := range strings.Split(content, "\n") {
		for _, part := range strings.Split(line, "| ") {
			if part = strings.TrimSpace(part); part != "" {
				lines = append(lines, part)
			}
		}
	}
	return lines
}

// Dashboard assembles every view for one poll
func (s *Service) Dashboard() (*Dashboard, error) {
	queues := make(map[queue.Name]*QueueView, len(queue.AllQueues))
	for _, q := range queue.AllQueues {
		view, err := s.Queue(q)
		if err != nil {
			return nil, err
		}
		queues[q] = view
	}

	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets()
	if err != nil {
		return nil, err
	}
	account, err := s.AccountProfit()
	if err != nil {
		return nil, err
	}
	history, err := s.HistoryProfit()
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Title:             s.opts.Title,
		Timestamp:         s.Timestamp(),
		Timezone:          s.opts.Location.String(),
		Symbols:           s.opts.Symbols,
		OrderTypes:        record.ValidOrderTypes,
		Precisions:        s.format.precisions,
		Queues:            queues,
		Snapshot:          snapshot,
		Tickets:           tickets,
		Account:           account,
		History:           history,
		RefreshIntervalMS: s.refreshMS(),
	}, nil
}

// Timestamp is the current time in the configured zone
func (s *Service) Timestamp() string {
	return s.now().In(s.opts.Location).Format(TimestampLayout)
}

func (s *Service) refreshMS() int64 {
	return s.opts.RefreshInterval.Milliseconds()
}

// readOptional reads a status file. A missing file is not an error.
func (s *Service) readOptional(q queue.Name) (string, bool, error) {
	b, err := s.store.Read(q)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", q, err)
	}
	return string(b), true, nil
}

func parseDecimal(v string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero
	}
	return d
}
