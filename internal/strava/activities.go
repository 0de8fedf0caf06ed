package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Activity is a summary activity from /athlete/activities
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Distance           float64   `json:"distance"`
	MovingTime         int       `json:"moving_time"`
	ElapsedTime        int       `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     time.Time `json:"start_date_local"`
	Timezone           string    `json:"timezone"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
}

// Window bounds a fetch by start time. Zero values leave that side open.
type Window struct {
	After  time.Time
	Before time.Time
}

// FetchResult reports one fetched page
type FetchResult struct {
	Activities   []Activity
	RateLimit    RateLimitInfo
	Page         int
	TotalFetched int
}

// ProgressCallback is called after each page request, including a failed one
type ProgressCallback func(result FetchResult)

// FetchActivities pages through the athlete's activities inside w. Paging stops
// at the first empty page or the first page shorter than the page size.
func (c *Client) FetchActivities(ctx context.Context, w Window, progress ProgressCallback) ([]Activity, error) {
	var all []Activity
	for page := 1; ; page++ {
		activities, limits, err := c.fetchPage(ctx, page, w)
		if progress != nil {
			progress(FetchResult{
				Activities:   activities,
				RateLimit:    limits,
				Page:         page,
				TotalFetched: len(all) + len(activities),
			})
		}
		if err != nil {
			return all, err
		}

		all = append(all, activities...)
		if len(activities) < c.pageSize {
			return all, nil
		}
	}
}

// FetchAllActivities fetches the athlete's full history
func (c *Client) FetchAllActivities(ctx context.Context, progress ProgressCallback) ([]Activity, error) {
	return c.FetchActivities(ctx, Window{}, progress)
}

// FetchActivitiesSince fetches activities that started after since
func (c *Client) FetchActivitiesSince(ctx context.Context, since time.Time, progress ProgressCallback) ([]Activity, error) {
	return c.FetchActivities(ctx, Window{After: since}, progress)
}

func (c *Client) fetchPage(ctx context.Context, page int, w Window) ([]Activity, RateLimitInfo, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.pageSize))
	if !w.After.IsZero() {
		q.Set("after", strconv.FormatInt(w.After.Unix(), 10))
	}
	if !w.Before.IsZero() {
		q.Set("before", strconv.FormatInt(w.Before.Unix(), 10))
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/athlete/activities?"+q.Encode(), nil)
	if err != nil {
		return nil, RateLimitInfo{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, RateLimitInfo{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	limits := c.recordLimits(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, limits, ErrRateLimited
	case http.StatusUnauthorized:
		return nil, limits, ErrUnauthorized
	default:
		return nil, limits, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, limits, fmt.Errorf("decoding response: %w", err)
	}
	return activities, limits, nil
}
