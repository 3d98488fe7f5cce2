package alerts

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cragwatch/internal/collector/application/events"
	"cragwatch/internal/observability/metrics"
	occupancy "cragwatch/internal/occupancy/domain"
)

// Channel delivers a rendered alert to its destination.
type Channel interface {
	Send(ctx context.Context, content string) error
}

// Clock provides time for cooldown decisions.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier sends a crowding alert when the overall occupancy crosses the
// configured threshold. Alerts fire on the rising edge only: once the gym
// is crowded, staying crowded is not news.
type Notifier struct {
	channel   Channel
	threshold int
	cooldown  time.Duration
	dedupe    time.Duration
	clock     Clock

	mu    sync.Mutex
	above bool
	sent  sendRecord
}

// Option configures the notifier.
type Option func(*Notifier)

// WithThreshold sets the crowding threshold percentage.
func WithThreshold(percent int) Option {
	return func(n *Notifier) {
		if percent > 0 && percent <= 100 {
			n.threshold = percent
		}
	}
}

// WithCooldown sets a minimum interval between alerts.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical alerts within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupe = window
		}
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// NewNotifier constructs a crowding notifier.
func NewNotifier(channel Channel, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("alerts: nil channel")
	}
	n := &Notifier{
		channel:   channel,
		threshold: 90,
		cooldown:  30 * time.Minute,
		clock:     systemClock{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// HandleSampleRecorded is the event bus subscriber for new samples.
func (n *Notifier) HandleSampleRecorded(ctx context.Context, event events.SampleRecorded) error {
	if n == nil {
		return nil
	}
	crowded := n.isCrowded(event.Sample)

	n.mu.Lock()
	rising := crowded && !n.above
	n.above = crowded
	n.mu.Unlock()

	if !rising {
		return nil
	}

	content := formatAlert(event.Sample, n.threshold)
	if !n.shouldSend(content) {
		return nil
	}
	if err := n.channel.Send(ctx, content); err != nil {
		return err
	}
	n.markSent(content)
	metrics.IncAlertSent()
	return nil
}

func (n *Notifier) isCrowded(sample occupancy.Sample) bool {
	return sample.Overall != nil && *sample.Overall >= n.threshold
}

func (n *Notifier) shouldSend(content string) bool {
	n.mu.Lock()
	record := n.sent
	n.mu.Unlock()
	if record.at.IsZero() {
		return true
	}
	now := n.clock.Now().UTC()
	if n.cooldown > 0 && now.Sub(record.at) < n.cooldown {
		return false
	}
	if n.dedupe > 0 && record.hash == hashContent(content) && now.Sub(record.at) < n.dedupe {
		return false
	}
	return true
}

func (n *Notifier) markSent(content string) {
	n.mu.Lock()
	n.sent = sendRecord{at: n.clock.Now().UTC(), hash: hashContent(content)}
	n.mu.Unlock()
}

func formatAlert(sample occupancy.Sample, threshold int) string {
	var b strings.Builder
	b.WriteString("[Crowding Alert]\n")
	fmt.Fprintf(&b, "Time: %s\n", sample.Time.Format(time.RFC3339))
	if sample.Lead != nil {
		fmt.Fprintf(&b, "Lead: %d%%\n", *sample.Lead)
	}
	if sample.Boulder != nil {
		fmt.Fprintf(&b, "Boulder: %d%%\n", *sample.Boulder)
	}
	if sample.Overall != nil {
		fmt.Fprintf(&b, "Overall: %d%%\n", *sample.Overall)
	}
	if sample.OpenSectors != "" {
		fmt.Fprintf(&b, "Open Sectors: %s\n", sample.OpenSectors)
	}
	fmt.Fprintf(&b, "Threshold: %d%%", threshold)
	return strings.TrimSpace(b.String())
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}
