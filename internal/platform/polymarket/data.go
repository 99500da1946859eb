package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// DataClient reads public wallet activity and positions from the Polymarket
// data API.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataClient creates a data API client rooted at baseURL, e.g.
// "https://data-api.polymarket.com".
func NewDataClient(baseURL string) *DataClient {
	return &DataClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Activity returns up to limit of user's most recent activity records, in
// the order the API sent them.
func (c *DataClient) Activity(ctx context.Context, user string, limit int) ([]domain.TradeEvent, error) {
	q := url.Values{}
	q.Set("user", user)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", "0")

	var raw []APIActivity
	if err := getJSON(ctx, c.httpClient, c.baseURL, "/activity", q, &raw); err != nil {
		return nil, fmt.Errorf("polymarket/data: activity for %s: %w", user, err)
	}

	events := make([]domain.TradeEvent, 0, len(raw))
	for _, a := range raw {
		events = append(events, a.ToDomain())
	}
	return events, nil
}

// Positions returns user's current positions.
func (c *DataClient) Positions(ctx context.Context, user string) ([]domain.Position, error) {
	q := url.Values{}
	q.Set("user", user)

	var raw []APIPosition
	if err := getJSON(ctx, c.httpClient, c.baseURL, "/positions", q, &raw); err != nil {
		return nil, fmt.Errorf("polymarket/data: positions for %s: %w", user, err)
	}

	positions := make([]domain.Position, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, p.ToDomain())
	}
	return positions, nil
}
