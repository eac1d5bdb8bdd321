package main

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/ksred/watchdog/internal/queue"
	"github.com/ksred/watchdog/internal/record"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// contract size per symbol, used for profit
var contractSizes = map[string]decimal.Decimal{
	"EURUSD":  decimal.NewFromInt(100000),
	"US100.f": decimal.NewFromInt(1),
}

var startPrices = map[string]decimal.Decimal{
	"EURUSD":  decimal.RequireFromString("1.08500"),
	"US100.f": decimal.RequireFromString("18250.00"),
}

type position struct {
	ticket     int
	order      record.Order
	openPrice  decimal.Decimal
	stopLoss   decimal.Decimal
	takeProfit decimal.Decimal
	profit     decimal.Decimal
}

type closedOrder struct {
	ticket int
	symbol string
	side   string
	lots   string
	profit decimal.Decimal
}

// terminal plays the trading terminal's side of the file contract: it
// consumes the approved, modified and dropped queues and writes the status
// files the dashboard reads.
type terminal struct {
	store      queue.Store
	rng        *rand.Rand
	nextTicket int
	prices     map[string]decimal.Decimal
	positions  []*position
	history    []closedOrder
	balance    decimal.Decimal
}

func newTerminal(store queue.Store, seed int64) *terminal {
	prices := make(map[string]decimal.Decimal, len(startPrices))
	for symbol, p := range startPrices {
		prices[symbol] = p
	}
	return &terminal{
		store:      store,
		rng:        rand.New(rand.NewSource(seed)),
		nextTicket: 1000,
		prices:     prices,
		balance:    decimal.NewFromInt(10000),
	}
}

// step runs one terminal cycle
func (t *terminal) step(now time.Time) error {
	if err := t.consume(queue.Approved, t.open); err != nil {
		return err
	}
	if err := t.consume(queue.Modified, t.modify); err != nil {
		return err
	}
	if err := t.consume(queue.Dropped, t.drop); err != nil {
		return err
	}

	t.movePrices()
	t.markToMarket()
	t.closeTriggered()

	return t.writeStatus(now)
}

// consume hands every line of q to fn and empties the queue
func (t *terminal) consume(q queue.Name, fn func(line string) error) error {
	return t.store.Update(q, func(lines []string) ([]string, error) {
		for _, line := range lines {
			if err := fn(line); err != nil {
				log.Warn().Err(err).Str("queue", string(q)).Str("line", line).Msg("terminal rejected line")
			}
		}
		return []string{}, nil
	})
}

func (t *terminal) open(line string) error {
	o, err := record.ParseOrder(line)
	if err != nil {
		return err
	}
	market, ok := t.prices[o.Symbol]
	if !ok {
		return fmt.Errorf("unknown symbol %s", o.Symbol)
	}

	openPrice := market
	if p, _ := decimal.NewFromString(o.Price); p.IsPositive() {
		openPrice = p
	}
	sl, _ := decimal.NewFromString(o.StopLoss)
	tp, _ := decimal.NewFromString(o.TakeProfit)

	t.nextTicket++
	t.positions = append(t.positions, &position{
		ticket:     t.nextTicket,
		order:      *o,
		openPrice:  openPrice,
		stopLoss:   sl,
		takeProfit: tp,
	})
	log.Info().Int("ticket", t.nextTicket).Str("order", line).Msg("position opened")
	return nil
}

func (t *terminal) modify(line string) error {
	m, err := record.ParseModification(line)
	if err != nil {
		return err
	}
	p, err := t.find(m.Ticket)
	if err != nil {
		return err
	}
	p.stopLoss, _ = decimal.NewFromString(m.StopLoss)
	p.takeProfit, _ = decimal.NewFromString(m.TakeProfit)
	log.Info().Int("ticket", p.ticket).Str("sl", m.StopLoss).Str("tp", m.TakeProfit).Msg("position modified")
	return nil
}

func (t *terminal) drop(line string) error {
	p, err := t.find(strings.TrimSpace(line))
	if err != nil {
		return err
	}
	t.close(p)
	return nil
}

func (t *terminal) find(ticket string) (*position, error) {
	n, err := strconv.Atoi(ticket)
	if err != nil {
		return nil, fmt.Errorf("invalid ticket %q", ticket)
	}
	for _, p := range t.positions {
		if p.ticket == n {
			return p, nil
		}
	}
	return nil, fmt.Errorf("ticket %d is not open", n)
}

func (t *terminal) close(p *position) {
	for i, open := range t.positions {
		if open == p {
			t.positions = append(t.positions[:i], t.positions[i+1:]...)
			break
		}
	}
	t.balance = t.balance.Add(p.profit)
	t.history = append(t.history, closedOrder{
		ticket: p.ticket,
		symbol: p.order.Symbol,
		side:   p.order.Type,
		lots:   p.order.Lots,
		profit: p.profit,
	})
	log.Info().Int("ticket", p.ticket).Str("profit", p.profit.StringFixed(2)).Msg("position closed")
}

// movePrices applies a random walk of up to 0.05% per step
func (t *terminal) movePrices() {
	for symbol, price := range t.prices {
		move := decimal.NewFromFloat((t.rng.Float64()*2 - 1) * 0.0005)
		t.prices[symbol] = price.Add(price.Mul(move)).Round(5)
	}
}

func (t *terminal) markToMarket() {
	for _, p := range t.positions {
		diff := t.prices[p.order.Symbol].Sub(p.openPrice)
		if isSell(p.order.Type) {
			diff = diff.Neg()
		}
		p.profit = diff.Mul(p.order.LotsValue()).Mul(contractSizes[p.order.Symbol]).Round(2)
	}
}

func (t *terminal) closeTriggered() {
	for _, p := range append([]*position(nil), t.positions...) {
		price := t.prices[p.order.Symbol]
		sell := isSell(p.order.Type)

		hitSL := p.stopLoss.IsPositive() &&
			((!sell && price.LessThanOrEqual(p.stopLoss)) || (sell && price.GreaterThanOrEqual(p.stopLoss)))
		hitTP := p.takeProfit.IsPositive() &&
			((!sell && price.GreaterThanOrEqual(p.takeProfit)) || (sell && price.LessThanOrEqual(p.takeProfit)))
		if hitSL || hitTP {
			t.close(p)
		}
	}
}

func (t *terminal) writeStatus(now time.Time) error {
	stamp := now.Format("2006.01.02 15:04:05")

	snapshot := []string{
		"=== ORDERS LOG " + stamp + " ===",
		fmt.Sprintf("Total Orders: %d", len(t.positions)),
	}
	if len(t.positions) == 0 {
		snapshot = append(snapshot, "No open orders")
	} else {
		snapshot = append(snapshot,
			"Ticket | Type | Symbol | Lots | OpenPrice | StopLoss | TakeProfit | Profit",
			"-------|------|--------|------|-----------|----------|------------|-------")
		for _, p := range t.positions {
			snapshot = append(snapshot, fmt.Sprintf("%d | %s | %s | %s | %s | %s | %s | %s",
				p.ticket, p.order.Type, p.order.Symbol, p.order.Lots,
				p.openPrice.String(), p.stopLoss.String(), p.takeProfit.String(), p.profit.StringFixed(2)))
		}
	}
	snapshot = append(snapshot, "=== END ===")

	floating := decimal.Zero
	for _, p := range t.positions {
		floating = floating.Add(p.profit)
	}
	account := fmt.Sprintf("Balance: %s | Equity: %s | Profit: %s | Orders: %d",
		t.balance.StringFixed(2), t.balance.Add(floating).StringFixed(2), floating.StringFixed(2), len(t.positions))

	history := []string{"=== ORDER HISTORY " + stamp + " ===", "Ticket Symbol Type Lots Profit", "------------------------------"}
	net := decimal.Zero
	for _, h := range t.history {
		history = append(history, fmt.Sprintf("%d %s %s %s %s", h.ticket, h.symbol, h.side, h.lots, h.profit.StringFixed(2)))
		net = net.Add(h.profit)
	}
	history = append(history, "Total net profit: "+net.StringFixed(2))

	market := make([]string, 0, len(t.prices))
	for _, symbol := range []string{"EURUSD", "US100.f"} {
		market = append(market, symbol+": "+t.prices[symbol].String())
	}

	writes := map[queue.Name][]string{
		queue.OrdersLog:       snapshot,
		queue.AccountLog:      {account},
		queue.OrderHistoryLog: history,
		queue.MarketLog:       {strings.Join(market, " | ")},
	}
	for q, lines := range writes {
		if err := t.store.Rewrite(q, lines); err != nil {
			return fmt.Errorf("failed to write %s: %w", q, err)
		}
	}
	return nil
}

func isSell(orderType string) bool {
	return strings.HasPrefix(strings.ToLower(orderType), "sell")
}
