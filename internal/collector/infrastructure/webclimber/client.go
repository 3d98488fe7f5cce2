package webclimber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	collector "cragwatch/internal/collector/domain"
)

// ErrNoAreas is returned when the widget page contains no occupancy areas.
var ErrNoAreas = errors.New("webclimber: no occupancy areas found")

// Client scrapes the webclimber occupancy widget.
type Client struct {
	widgetURL string
	client    *http.Client
}

// NewClient constructs a widget client.
func NewClient(widgetURL string) (*Client, error) {
	if widgetURL == "" {
		return nil, errors.New("webclimber: empty widget url")
	}
	return &Client{
		widgetURL: widgetURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Fetch downloads the widget page and extracts the current occupancy.
func (c *Client) Fetch(ctx context.Context) (collector.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.widgetURL, nil)
	if err != nil {
		return collector.Reading{}, err
	}
	req.Header.Set("User-Agent", "cragwatch/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return collector.Reading{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return collector.Reading{}, fmt.Errorf("webclimber: http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return collector.Reading{}, err
	}
	return extract(doc)
}

func extract(doc *goquery.Document) (collector.Reading, error) {
	var reading collector.Reading
	found := false

	doc.Find(".occupancy .area").Each(func(_ int, area *goquery.Selection) {
		label := strings.TrimSpace(area.Find(".label").Text())
		if label == "" {
			label, _ = area.Attr("data-area")
		}
		percent, ok := parsePercent(area.Find(".percent").Text())
		if !ok {
			return
		}
		found = true
		switch {
		case isLeadLabel(label):
			reading.Lead = &percent
		case isBoulderLabel(label):
			reading.Boulder = &percent
		}
	})

	if !found {
		return collector.Reading{}, ErrNoAreas
	}

	var sectors []string
	doc.Find(".sectors .sector.open").Each(func(_ int, sector *goquery.Selection) {
		name := strings.TrimSpace(sector.Text())
		if name != "" {
			sectors = append(sectors, name)
		}
	})
	reading.OpenSectors = strings.Join(sectors, ", ")

	return reading, nil
}

// The widget labels areas in German or English depending on deployment.
func isLeadLabel(label string) bool {
	l := strings.ToLower(label)
	return strings.Contains(l, "lead") || strings.Contains(l, "seil") || strings.Contains(l, "klettern") || strings.Contains(l, "rope")
}

func isBoulderLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), "boulder")
}

func parsePercent(text string) (int, bool) {
	digits := strings.Builder{}
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	value, err := strconv.Atoi(digits.String())
	if err != nil || value < 0 || value > 100 {
		return 0, false
	}
	return value, true
}
