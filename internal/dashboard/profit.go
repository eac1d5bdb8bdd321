package dashboard

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	accountProfitPattern  = regexp.MustCompile(`Profit:\s*([-+]?\d*\.?\d+)`)
	accountOrdersPattern  = regexp.MustCompile(`Orders:\s*(\d+)`)
	totalNetProfitPattern = regexp.MustCompile(`Total net profit:\s*([-+]?\d*\.?\d+)`)
	closedOrderPattern    = regexp.MustCompile(`^\d+\s`)
)

// history lines that are never closed orders, even if they start with digits
var historyNoise = []string{"=", "Total", "Account", "Date", "Symbol", "----"}

// ExtractAccountProfit returns the first "Profit:" value of the account log
func ExtractAccountProfit(content string) (string, bool) {
	return firstMatch(accountProfitPattern, content)
}

// ExtractAccountOrders returns the open order count of the account log
func ExtractAccountOrders(content string) (int, bool) {
	v, ok := firstMatch(accountOrdersPattern, content)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtractTotalNetProfit returns the "Total net profit:" value of the order history log
func ExtractTotalNetProfit(content string) (string, bool) {
	return firstMatch(totalNetProfitPattern, content)
}

// CountClosedOrders counts history lines that start with a ticket number
func CountClosedOrders(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || hasAnyPrefix(line, historyNoise) {
			continue
		}
		// TrimSpace removed any trailing separator, so a bare ticket line
		// does not count
		if closedOrderPattern.MatchString(line) {
			count++
		}
	}
	return count
}

func firstMatch(re *regexp.Regexp, content string) (string, bool) {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
