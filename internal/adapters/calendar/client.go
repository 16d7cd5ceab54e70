// Package calendar is the client for the external busy/free calendar
// service. Its failures never surface to callers: the availability
// resolver logs them and degrades to its hourly fallback path.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tablemeet/venue-scheduler/internal/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

type windowDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type dayDTO struct {
	Free []windowDTO `json:"free"`
	Busy []windowDTO `json:"busy"`
}

// FreeWindows fetches the busy/free day view for a calendar reference and
// returns the free windows.
func (c *Client) FreeWindows(ctx context.Context, calendarRef string, date time.Time) ([]domain.TimeRange, error) {
	u := fmt.Sprintf("%s/v1/calendars/%s/day?date=%s",
		c.baseURL, url.PathEscape(calendarRef), date.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(domain.ErrExternalService, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(domain.ErrExternalService, "calendar service returned %d", resp.StatusCode)
	}

	var day dayDTO
	if err := json.NewDecoder(resp.Body).Decode(&day); err != nil {
		return nil, errors.Wrap(domain.ErrExternalService, err.Error())
	}

	windows := make([]domain.TimeRange, 0, len(day.Free))
	for _, w := range day.Free {
		windows = append(windows, domain.TimeRange{Start: w.Start, End: w.End})
	}
	return windows, nil
}
