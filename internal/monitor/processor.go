// Package monitor watches the queue files for changes made by the terminal
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/ksred/watchdog/internal/approval"
	"github.com/ksred/watchdog/internal/metrics"
	"github.com/ksred/watchdog/internal/queue"
	"github.com/ksred/watchdog/internal/record"
	"github.com/rs/zerolog/log"
)

// Change is a depth change no dashboard action accounts for
type Change struct {
	Queue queue.Name
	Delta int
}

// promotion destination by source queue
var destinations = map[queue.Name]queue.Name{
	approval.Orders.Source:        approval.Orders.Destination,
	approval.Modifications.Source: approval.Modifications.Destination,
}

// Processor periodically re-reads every queue, updates the depth gauges and
// logs changes made outside the dashboard. Counts are best effort: an action
// that races a scan may be reported once as an external change.
type Processor struct {
	store        queue.Store
	processDelay time.Duration

	mu        sync.Mutex
	scanned   bool
	depths    map[queue.Name]int
	expected  map[queue.Name]int
	positions int
}

func NewProcessor(store queue.Store, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Processor{
		store:        store,
		processDelay: interval,
		depths:       make(map[queue.Name]int),
		expected:     make(map[queue.Name]int),
	}
}

// Start begins the monitoring loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "queue_monitor").Logger()
	logger.Info().Dur("interval", p.processDelay).Msg("starting queue monitor")

	if _, err := p.Scan(); err != nil {
		logger.Error().Err(err).Msg("failed to scan queues")
	}

	ticker := time.NewTicker(p.processDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down queue monitor")
			return
		case <-ticker.C:
			if _, err := p.Scan(); err != nil {
				logger.Error().Err(err).Msg("failed to scan queues")
			}
		}
	}
}

// Observe implements approval.Observer. Successful actions are recorded so
// the next scan does not report them as external.
func (p *Processor) Observe(o approval.Outcome) {
	if !o.Success {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch o.Action {
	case approval.ActionAddNewOrder, approval.ActionDropOrder, approval.ActionModifyOrder:
		p.expected[o.Queue]++
	case approval.ActionCancelOrder, approval.ActionRemoveApproved,
		approval.ActionRemoveModified, approval.ActionRemoveToBeModified:
		p.expected[o.Queue]--
	default:
		if o.Promoted {
			p.expected[o.Queue]--
			p.expected[destinations[o.Queue]]++
		}
	}
}

// Scan reads every queue and the snapshot once and returns the external
// changes since the previous scan. The first scan only records a baseline.
func (p *Processor) Scan() ([]Change, error) {
	logger := log.With().Str("component", "queue_monitor").Logger()

	depths := make(map[queue.Name]int, len(queue.AllQueues))
	for _, q := range queue.AllQueues {
		lines, err := p.store.Lines(q)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s queue: %w", q, err)
		}
		depths[q] = len(lines)
		metrics.QueueDepth.WithLabelValues(string(q)).Set(float64(len(lines)))
	}

	positions, err := p.openPositions()
	if err != nil {
		return nil, err
	}
	metrics.OpenPositions.Set(float64(positions))

	p.mu.Lock()
	defer p.mu.Unlock()

	var changes []Change
	if p.scanned {
		for _, q := range queue.AllQueues {
			delta := depths[q] - (p.depths[q] + p.expected[q])
			if delta == 0 {
				continue
			}
			changes = append(changes, Change{Queue: q, Delta: delta})

			direction := "grew"
			if delta < 0 {
				direction = "shrank"
			}
			metrics.ExternalChanges.WithLabelValues(string(q), direction).Add(float64(abs(delta)))
			logger.Info().
				Str("queue", string(q)).
				Int("delta", delta).
				Int("depth", depths[q]).
				Msg(describe(q, delta))
		}

		if positions != p.positions {
			logger.Info().
				Int("previous", p.positions).
				Int("current", positions).
				Msg("open positions changed")
		}
	}

	p.scanned = true
	p.depths = depths
	p.expected = make(map[queue.Name]int)
	p.positions = positions
	return changes, nil
}

// Depth returns the depth of q at the last scan
func (p *Processor) Depth(q queue.Name) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.depths[q]
}

func (p *Processor) openPositions() (int, error) {
	b, err := p.store.Read(queue.OrdersLog)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return len(record.ParseSnapshot(string(b))), nil
}

func describe(q queue.Name, delta int) string {
	if delta < 0 {
		switch q {
		case queue.Approved, queue.Modified, queue.Dropped:
			return fmt.Sprintf("%s queue consumed by terminal", q)
		}
		return fmt.Sprintf("%s queue shrank outside the dashboard", q)
	}
	return fmt.Sprintf("%s queue grew outside the dashboard", q)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
