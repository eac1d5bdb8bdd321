package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ksred/watchdog/internal/approval"
	"github.com/ksred/watchdog/internal/queue"
	"github.com/shopspring/decimal"
)

const ordersLog = `=== ORDERS LOG 2024-05-01 10:00 ===
Total Orders: 2
Ticket | Type | Symbol | Lots | OpenPrice | StopLoss | TakeProfit | Profit
-------|------|--------|------|-----------|----------|------------|-------
1001 | buy | EURUSD | 0.10 | 1.08512 | 1.08 | 0 | -12.5
1002 | sell | US100.f | 1.00 | 18250.5 | 18400 | 17900 | 1234.567
=== END ===
`

const accountLog = `Balance: 10000.00 | Equity: 9987.50 | Profit: -12.50 | Orders: 2`

const historyLog = `=== ORDER HISTORY ===
Account: 12345
Date range: 2024-05-01
Symbol filter: all
Ticket Symbol Type Lots Profit
------------------------------
901 EURUSD buy 0.10 15.20
902 US100.f sell 1.00 -4.10
903 EURUSD sell 0.20 7.00
Total net profit: 18.10
Total orders: 3
`

func newTestService(t *testing.T) (*Service, *queue.MemoryStore) {
	t.Helper()
	store := queue.NewMemoryStore()
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		warsaw = time.FixedZone("CET", 3600)
	}
	svc := NewService(store, Options{
		RefreshInterval: 1500 * time.Millisecond,
		Location:        warsaw,
		Symbols:         []string{"EURUSD", "US100.f"},
		Title:           "watchdog",
	})
	svc.now = func() time.Time { return time.Date(2024, 1, 15, 11, 30, 0, 0, time.UTC) }
	return svc, store
}

func TestFormatPrice(t *testing.T) {
	f := NewFormatter(nil)
	tests := []struct {
		value, symbol, want string
	}{
		{"N/A", "EURUSD", "N/A"},
		{"", "EURUSD", "N/A"},
		{"0", "EURUSD", "0"},
		{"0.00000", "EURUSD", "0"},
		{"garbage", "EURUSD", "0"},
		{"1.085123", "EURUSD", "1.08512"},
		{"1.085125", "EURUSD", "1.08513"},
		{"18250.5", "US100.f", "18,250.50"},
		{"1234567.891", "", "1,234,567.89"},
		{"-1234.5", "XAUUSD", "-1,234.50"},
		{"999.999", "US100.f", "1,000.00"},
	}
	for _, tt := range tests {
		if got := f.FormatPrice(tt.value, tt.symbol); got != tt.want {
			t.Errorf("FormatPrice(%q, %q) = %q, want %q", tt.value, tt.symbol, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		value  string
		places int
		want   string
	}{
		{"0", 2, "0.00"},
		{"100", 0, "100"},
		{"1000", 0, "1,000"},
		{"-0.001", 2, "0.00"},
		{"123456.7", 1, "123,456.7"},
	}
	for _, tt := range tests {
		got := FormatNumber(decimal.RequireFromString(tt.value), tt.places)
		if got != tt.want {
			t.Errorf("FormatNumber(%s, %d) = %q, want %q", tt.value, tt.places, got, tt.want)
		}
	}
}

func TestPrecision(t *testing.T) {
	f := NewFormatter(map[string]int{"XAUUSD": 3})
	if got := f.Precision("XAUUSD"); got != 3 {
		t.Errorf("XAUUSD precision = %d", got)
	}
	if got := f.Precision("EURUSD"); got != DefaultPrecision {
		t.Errorf("unmapped precision = %d", got)
	}
	if got := NewFormatter(nil).Precision("EURUSD"); got != 5 {
		t.Errorf("default EURUSD precision = %d", got)
	}
}

func TestExtractors(t *testing.T) {
	if got, ok := ExtractAccountProfit(accountLog); !ok || got != "-12.50" {
		t.Errorf("ExtractAccountProfit = %q, %v", got, ok)
	}
	if got, ok := ExtractAccountOrders(accountLog); !ok || got != 2 {
		t.Errorf("ExtractAccountOrders = %d, %v", got, ok)
	}
	if _, ok := ExtractAccountProfit("Balance: 10"); ok {
		t.Error("expected no profit")
	}
	if got, ok := ExtractTotalNetProfit(historyLog); !ok || got != "18.10" {
		t.Errorf("ExtractTotalNetProfit = %q, %v", got, ok)
	}
	if got := CountClosedOrders(historyLog); got != 3 {
		t.Errorf("CountClosedOrders = %d, want 3", got)
	}
	if got := CountClosedOrders(""); got != 0 {
		t.Errorf("CountClosedOrders(empty) = %d", got)
	}
}

func TestQueue_DecodesRowsAndActions(t *testing.T) {
	svc, store := newTestService(t)
	store.Set(queue.Orders, "EURUSD buy 0.10 1.1 0 0 p\nbroken line\nUS100.f sell 1 0 0 0\n")

	view, err := svc.Queue(queue.Orders)
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if view.Count != 3 || view.RefreshIntervalMS != 1500 {
		t.Fatalf("view = %+v", view)
	}

	first := view.Rows[0]
	if !first.Valid || first.Order == nil || first.Order.Symbol != "EURUSD" {
		t.Errorf("first row = %+v", first)
	}
	wantActions := []approval.Action{approval.ActionAddR, approval.ActionCancelOrder}
	if len(first.Actions) != 2 || first.Actions[0] != wantActions[0] || first.Actions[1] != wantActions[1] {
		t.Errorf("first actions = %v", first.Actions)
	}

	second := view.Rows[1]
	if second.Valid || second.Error == "" || second.Number != 2 {
		t.Errorf("second row = %+v", second)
	}
	if len(second.Actions) != 1 || second.Actions[0] != approval.ActionCancelOrder {
		t.Errorf("invalid row actions = %v", second.Actions)
	}

	if got := len(view.Rows[2].Actions); got != 3 {
		t.Errorf("unflagged row has %d actions, want 3", got)
	}
}

func TestQueue_Modifications(t *testing.T) {
	svc, store := newTestService(t)
	store.Set(queue.ToBeModified, "1001 1.08 1.1 r\n")

	view, err := svc.Queue(queue.ToBeModified)
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	row := view.Rows[0]
	if row.Modification == nil || row.Modification.Ticket != "1001" {
		t.Fatalf("row = %+v", row)
	}
	if row.Actions[0] != approval.ActionAddPToBeModified || row.Actions[1] != approval.ActionRemoveToBeModified {
		t.Errorf("actions = %v", row.Actions)
	}
}

func TestSnapshot(t *testing.T) {
	svc, store := newTestService(t)
	store.Set(queue.OrdersLog, ordersLog)

	view, err := svc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if view.Count != 2 {
		t.Fatalf("count = %d", view.Count)
	}

	eur := view.Rows[0]
	if eur.Display.OpenPrice != "1.08512" || eur.Display.StopLoss != "1.08000" || eur.Display.TakeProfit != "0" {
		t.Errorf("EURUSD display = %+v", eur.Display)
	}
	if eur.ProfitPositive || eur.Display.Profit != "-12.50" {
		t.Errorf("EURUSD profit = %+v", eur)
	}

	nas := view.Rows[1]
	if nas.Display.OpenPrice != "18,250.50" || nas.Display.Profit != "1,234.57" || !nas.ProfitPositive {
		t.Errorf("US100.f display = %+v", nas.Display)
	}
}

func TestSnapshot_MissingFile(t *testing.T) {
	svc, _ := newTestService(t)
	view, err := svc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if view.Count != 0 || view.Rows == nil {
		t.Errorf("view = %+v", view)
	}
}

func TestTickets_MarksQueuedRequests(t *testing.T) {
	svc, store := newTestService(t)
	store.Set(queue.OrdersLog, ordersLog)
	store.Set(queue.ToBeModified, "1001 1.07 1.2 p\n")
	store.Set(queue.Dropped, "1002\n")

	view, err := svc.Tickets()
	if err != nil {
		t.Fatalf("Tickets: %v", err)
	}
	if view.Count != 2 {
		t.Fatalf("count = %d", view.Count)
	}

	first := view.Rows[0]
	if first.Label != "1001 - EURUSD (buy)" || !first.PendingModification || first.DropQueued {
		t.Errorf("first = %+v", first)
	}
	if first.StopLoss != "1.08" || first.TakeProfit != "0" {
		t.Errorf("first levels = %s/%s", first.StopLoss, first.TakeProfit)
	}
	second := view.Rows[1]
	if !second.DropQueued || second.PendingModification || second.AppliedModification {
		t.Errorf("second = %+v", second)
	}
}

func TestProfits(t *testing.T) {
	svc, store := newTestService(t)

	account, err := svc.AccountProfit()
	if err != nil {
		t.Fatalf("AccountProfit: %v", err)
	}
	if account.Available {
		t.Error("missing account log must not be available")
	}

	store.Set(queue.AccountLog, accountLog)
	store.Set(queue.OrderHistoryLog, historyLog)

	account, err = svc.AccountProfit()
	if err != nil {
		t.Fatalf("AccountProfit: %v", err)
	}
	if !account.Available || account.Profit != "-12.50" || account.Positive || account.OpenOrders != 2 {
		t.Errorf("account = %+v", account)
	}

	history, err := svc.HistoryProfit()
	if err != nil {
		t.Fatalf("HistoryProfit: %v", err)
	}
	if !history.Available || history.Formatted != "18.10" || !history.Positive || history.ClosedOrders != 3 {
		t.Errorf("history = %+v", history)
	}
}

func TestAccountStatus(t *testing.T) {
	svc, store := newTestService(t)
	store.Set(queue.AccountLog, accountLog)

	view, err := svc.AccountStatus()
	if err != nil {
		t.Fatalf("AccountStatus: %v", err)
	}
	if len(view.Files) != 2 {
		t.Fatalf("files = %d", len(view.Files))
	}

	account := view.Files[0]
	if !account.Found || len(account.Lines) != 4 || account.Lines[2] != "Profit: -12.50" {
		t.Errorf("account = %+v", account)
	}
	market := view.Files[1]
	if market.Found || market.Message != "Market log file not found." {
		t.Errorf("market = %+v", market)
	}
	if view.Timestamp != "2024-01-15 12:30:00" {
		t.Errorf("timestamp = %q", view.Timestamp)
	}
}

type failingStore struct {
	*queue.MemoryStore
}

func (f failingStore) Read(q queue.Name) ([]byte, error) {
	return nil, errors.New("permission denied")
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, store := newTestService(t)
	store.Set(queue.Approved, "EURUSD buy 0.10 1.1 0 0\n")
	store.Set(queue.OrdersLog, ordersLog)

	h := NewGinHandlers(svc)
	r := gin.New()
	r.GET("/approved", h.QueueHandler(queue.Approved))
	r.GET("/dashboard", h.DashboardHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/approved", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Success bool      `json:"success"`
		Data    QueueView `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data.Count != 1 || body.Data.Rows[0].Actions[0] != approval.ActionRemoveApproved {
		t.Errorf("body = %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	var dash struct {
		Data Dashboard `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dash.Data.Title != "watchdog" || dash.Data.Snapshot.Count != 2 || len(dash.Data.Tickets) != 2 {
		t.Errorf("dashboard = %s", w.Body.String())
	}
	if dash.Data.Queues[queue.Approved].Count != 1 || dash.Data.RefreshIntervalMS != 1500 {
		t.Errorf("dashboard queues = %s", w.Body.String())
	}
}

func TestHandlers_ReadFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(failingStore{queue.NewMemoryStore()}, Options{})
	r := gin.New()
	r.GET("/snapshot", NewGinHandlers(svc).SnapshotHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/snapshot", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}
