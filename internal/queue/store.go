// Package queue stores the newline-delimited text files shared with the
// trading terminal. Each file is a queue of records, one per line.
package queue

import (
	"strings"
)

// Name is the logical name of a file shared with the terminal
type Name string

// Queues written by the dashboard and consumed by the terminal
const (
	Orders       Name = "orders"
	Approved     Name = "approved"
	Modified     Name = "modified"
	ToBeModified Name = "to_be_modified"
	Dropped      Name = "dropped"
)

// Status files written by the terminal and only read here
const (
	AccountLog      Name = "account_log"
	OrdersLog       Name = "orders_log"
	OrderHistoryLog Name = "order_history_log"
	MarketLog       Name = "market_log"
)

// DefaultFiles maps every logical name to its file name in the terminal's Files directory
var DefaultFiles = map[Name]string{
	Orders:          "orders.txt",
	Approved:        "approved.txt",
	Modified:        "modified.txt",
	ToBeModified:    "to_be_modified.txt",
	Dropped:         "dropped.txt",
	AccountLog:      "account_log.txt",
	OrdersLog:       "orders_log.txt",
	OrderHistoryLog: "order_history_log.txt",
	MarketLog:       "market_log.txt",
}

// AllQueues lists the queues in display order
var AllQueues = []Name{Orders, Approved, ToBeModified, Modified, Dropped}

// UpdateFunc receives the current lines of a queue and returns the lines
// to write back. Returning an error leaves the file untouched.
type UpdateFunc func(lines []string) ([]string, error)

// Store is the storage contract the approval workflow runs against.
// A missing file always reads as an empty queue.
type Store interface {
	// Lines returns the trimmed, non-empty lines of a queue
	Lines(q Name) ([]string, error)
	// Append adds one line, making sure it starts on a fresh line
	Append(q Name, line string) error
	// Rewrite replaces the whole queue. Last writer wins.
	Rewrite(q Name, lines []string) error
	// Update runs fn with the queue held exclusively from read to write
	Update(q Name, fn UpdateFunc) error
	// Read returns the raw file content. A missing file yields an error
	// matching fs.ErrNotExist.
	Read(q Name) ([]byte, error)
}

// SplitLines trims every line and drops the empty ones
func SplitLines(content string) []string {
	lines := []string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// JoinLines is the inverse used by Rewrite. No trailing newline is added.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// appendPayload returns the bytes to append after existing content whose
// final byte is last (0 when the file is empty).
func appendPayload(last byte, empty bool, line string) string {
	if !empty && last != '\n' {
		return "\n" + line + "\n"
	}
	return line + "\n"
}
