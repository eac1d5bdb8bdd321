package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ksred/watchdog/internal/approval"
	"github.com/rs/zerolog/log"
)

var (
	symbols    = []string{"EURUSD", "US100.f"}
	orderTypes = []string{"buy", "sell"}
)

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	mu         sync.Mutex
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

func (rs *routeStats) add(d time.Duration, failed bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
	if failed {
		rs.failures++
	}
}

// calculate returns min, max, mean, median, p95 and p99 of the recorded durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]
	return
}

// loadClient drives the dashboard API the way two operators would
type loadClient struct {
	baseURL   string
	passwords map[string]string
	client    *http.Client
	stats     map[string]*routeStats
}

func newLoadClient(baseURL, passP, passR string) *loadClient {
	return &loadClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		passwords: map[string]string{"p": passP, "r": passR},
		client:    &http.Client{Timeout: 10 * time.Second},
		stats: map[string]*routeStats{
			"submit":  {name: "Submit Order"},
			"approve": {name: "Approve Order"},
			"list":    {name: "List Orders"},
		},
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (lc *loadClient) do(route string, req *http.Request) (*apiResponse, error) {
	req.Header.Set("X-Request-ID", uuid.New().String())

	start := time.Now()
	resp, err := lc.client.Do(req)
	if err != nil {
		lc.stats[route].add(time.Since(start), true)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	lc.stats[route].add(time.Since(start), err != nil || resp.StatusCode >= http.StatusBadRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("route", route).Str("response", string(body)).Msg("API response")

	var result apiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := string(body)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, fmt.Errorf("%s failed with status %d: %s", route, resp.StatusCode, msg)
	}
	return &result, nil
}

func (lc *loadClient) submit(o approval.NewOrder) error {
	body, err := json.Marshal(o)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, lc.baseURL+"/api/v1/orders", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = lc.do("submit", req)
	return err
}

func (lc *loadClient) approve(row int, approver string) (bool, error) {
	form := url.Values{"password": {lc.passwords[approver]}}
	req, err := http.NewRequest(http.MethodPost,
		fmt.Sprintf("%s/api/v1/orders/%d/approve/%s", lc.baseURL, row, approver),
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := lc.do("approve", req)
	if err != nil {
		return false, err
	}
	var result approval.Result
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return false, err
	}
	return result.Promoted, nil
}

func (lc *loadClient) pending() (int, error) {
	req, err := http.NewRequest(http.MethodGet, lc.baseURL+"/api/v1/orders", nil)
	if err != nil {
		return 0, err
	}
	resp, err := lc.do("list", req)
	if err != nil {
		return 0, err
	}
	var view struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		return 0, err
	}
	return view.Count, nil
}

// runLoad submits orders from several workers, then approves the head
// of the orders queue with both flags until it is empty
func runLoad(lc *loadClient, orders, workers int) {
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		n := orders / workers
		if i < orders%workers {
			n++
		}
		wg.Add(1)
		go func(workerID, n int) {
			defer wg.Done()
			submitOrders(lc, workerID, n)
		}(i, n)
	}
	wg.Wait()

	promoted := 0
	for {
		count, err := lc.pending()
		if err != nil {
			log.Error().Err(err).Msg("Failed to list orders")
			break
		}
		if count == 0 {
			break
		}
		ok := true
		for _, approver := range []string{"p", "r"} {
			done, err := lc.approve(1, approver)
			if err != nil {
				log.Error().Err(err).Str("approver", approver).Msg("Failed to approve order")
				ok = false
				break
			}
			if done {
				promoted++
			}
		}
		if !ok {
			break
		}
	}

	log.Info().
		Int("orders", orders).
		Int("promoted", promoted).
		Dur("duration", time.Since(start)).
		Msg("Load run completed")
	lc.printPerformanceStats()
}

func submitOrders(lc *loadClient, workerID, n int) {
	for i := 0; i < n; i++ {
		o := approval.NewOrder{
			Symbol: symbols[rand.Intn(len(symbols))],
			Type:   orderTypes[rand.Intn(len(orderTypes))],
			Lots:   fmt.Sprintf("%.2f", float64(rand.Intn(50)+1)/100),
		}
		if err := lc.submit(o); err != nil {
			log.Error().Err(err).Int("worker_id", workerID).Str("symbol", o.Symbol).Msg("Failed to submit order")
			continue
		}
		log.Info().
			Int("worker_id", workerID).
			Str("symbol", o.Symbol).
			Str("type", o.Type).
			Str("lots", o.Lots).
			Msg("Order submitted")

		time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
	}
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (lc *loadClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, key := range []string{"submit", "approve", "list"} {
		stats := lc.stats[key]
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}
