package record

import (
	"strings"
)

// NotAvailable marks snapshot fields the terminal did not report
const NotAvailable = "N/A"

// snapshotNoise are the prefixes of header, footer and separator lines
// the terminal writes around the position table.
var snapshotNoise = []string{
	"=== ORDERS LOG",
	"=== END",
	"Total Orders:",
	"Ticket | Type",
	"-------|------",
	"No open orders",
}

// Position is one open position as reported by the terminal in orders_log.txt
type Position struct {
	Ticket     string `json:"ticket"`
	Type       string `json:"type"`
	Symbol     string `json:"symbol"`
	Lots       string `json:"lots"`
	OpenPrice  string `json:"open_price"`
	StopLoss   string `json:"stop_loss"`
	TakeProfit string `json:"take_profit"`
	Profit     string `json:"profit"`
	Comment    string `json:"comment"`
}

// ParseSnapshotLine decodes one pipe-delimited position row.
// The bool is false for blank, header and footer lines and for rows
// with fewer than five columns.
func ParseSnapshotLine(line string) (Position, bool) {
	line = strings.TrimSpace(line)
	if line == "" || isSnapshotNoise(line) || !strings.Contains(line, "|") {
		return Position{}, false
	}

	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 5 {
		return Position{}, false
	}

	p := Position{
		Ticket: parts[0],
		Type:   parts[1],
		Symbol: parts[2],
		Lots:   parts[3],
	}
	if len(parts) >= 8 {
		p.OpenPrice = parts[4]
		p.StopLoss = parts[5]
		p.TakeProfit = parts[6]
		p.Profit = parts[7]
		if len(parts) >= 9 {
			p.Comment = parts[8]
		}
		return p, true
	}

	p.OpenPrice = NotAvailable
	p.StopLoss = NotAvailable
	p.TakeProfit = NotAvailable
	p.Profit = parts[4]
	return p, true
}

// ParseSnapshot decodes every position row in the snapshot text
func ParseSnapshot(content string) []Position {
	positions := []Position{}
	for _, line := range strings.Split(content, "\n") {
		if p, ok := ParseSnapshotLine(line); ok {
			positions = append(positions, p)
		}
	}
	return positions
}

func isSnapshotNoise(line string) bool {
	for _, prefix := range snapshotNoise {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
