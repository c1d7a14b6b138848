package meter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/tarifscope/tarifscope/pkg/common"
	"github.com/tarifscope/tarifscope/pkg/log"
	"github.com/tarifscope/tarifscope/pkg/types"
)

// maxCurveFetchDays is the longest load-curve window the data hub serves in
// one request. Longer periods are fetched in chunks.
const maxCurveFetchDays = 7

// DataHub implements Provider against the grid operator's metering API.
// Load-curve responses carry average power in watts per sampling interval;
// the calendar endpoint publishes one color per day.
type DataHub struct {
	apiURL   string
	apiToken string
	client   *http.Client

	mu           sync.Mutex
	cachedCurves map[string][]types.RawReading
	cachedColors map[string][]types.ColorDay
}

// configuredDataHub sets up flags for the data hub client and returns the
// instance. Values bind when lflag.Configure runs.
func configuredDataHub() *DataHub {
	d := &DataHub{
		client:       common.HTTPClient(30 * time.Second),
		cachedCurves: make(map[string][]types.RawReading),
		cachedColors: make(map[string][]types.ColorDay),
	}
	apiURL := lflag.String("datahub-api-url", "https://datahub.example.com/api/v1", "Base URL for the metering data hub API")
	apiToken := lflag.String("datahub-api-token", "", "Bearer token for the metering data hub API")

	lflag.Do(func() {
		d.apiURL = *apiURL
		d.apiToken = *apiToken
	})

	return d
}

// Validate ensures the configuration is usable.
func (d *DataHub) Validate() error {
	if d.apiURL == "" {
		return fmt.Errorf("datahub-api-url is required")
	}
	if _, err := url.Parse(d.apiURL); err != nil {
		return fmt.Errorf("failed to parse datahub url (%s): %w", d.apiURL, err)
	}
	return nil
}

// curveEntry is one point of the load-curve response. The hub returns watts
// as a string and the interval length as an ISO-8601-ish duration code.
type curveEntry struct {
	Timestamp      string `json:"timestamp"`
	Value          string `json:"value"`
	IntervalLength string `json:"interval_length"`
}

type curveResponse struct {
	Readings []curveEntry `json:"readings"`
}

// GetLoadCurve fetches the load curve in week-sized chunks. The hub's range
// bounds are inclusive on both ends, so consecutive chunks share their
// boundary timestamp; the duplicates are left in place for the engine's
// deduplication to drop.
func (d *DataHub) GetLoadCurve(ctx context.Context, meterPointID string, start, end time.Time) ([]types.RawReading, error) {
	if meterPointID == "" {
		return nil, fmt.Errorf("meterPointID cannot be empty")
	}

	cacheKey := fmt.Sprintf("%s/%d/%d", meterPointID, start.Unix(), end.Unix())
	d.mu.Lock()
	if cached, ok := d.cachedCurves[cacheKey]; ok {
		d.mu.Unlock()
		return cached, nil
	}
	d.mu.Unlock()

	var readings []types.RawReading
	for chunkStart := start; chunkStart.Before(end); chunkStart = chunkStart.AddDate(0, 0, maxCurveFetchDays) {
		chunkEnd := chunkStart.AddDate(0, 0, maxCurveFetchDays)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		chunk, err := d.fetchCurveRange(ctx, meterPointID, chunkStart, chunkEnd)
		if err != nil {
			return nil, err
		}
		readings = append(readings, chunk...)
	}

	d.mu.Lock()
	d.cachedCurves[cacheKey] = readings
	d.mu.Unlock()

	return readings, nil
}

func (d *DataHub) fetchCurveRange(ctx context.Context, meterPointID string, start, end time.Time) ([]types.RawReading, error) {
	u, err := url.Parse(fmt.Sprintf("%s/metering/%s/load_curve", d.apiURL, url.PathEscape(meterPointID)))
	if err != nil {
		return nil, fmt.Errorf("invalid datahub url: %w", err)
	}
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	u.RawQuery = params.Encode()

	body, err := d.get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var data curveResponse
	if err := json.NewDecoder(body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode load curve response: %w", err)
	}

	readings := make([]types.RawReading, 0, len(data.Readings))
	for _, entry := range data.Readings {
		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse load curve timestamp",
				slog.String("value", entry.Timestamp), slog.Any("error", err))
			continue
		}
		watts, err := strconv.ParseFloat(entry.Value, 64)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse load curve value",
				slog.String("value", entry.Value), slog.Any("error", err))
			continue
		}
		readings = append(readings, types.RawReading{
			Timestamp:    ts,
			PowerKW:      watts / 1000.0, // W to kW
			IntervalCode: entry.IntervalLength,
		})
	}

	log.Ctx(ctx).DebugContext(ctx, "fetched load curve chunk",
		slog.String("meterPointID", meterPointID),
		slog.Time("start", start),
		slog.Time("end", end),
		slog.Int("count", len(readings)),
	)
	return readings, nil
}

type colorEntry struct {
	Date  string `json:"date"`
	Color string `json:"color"`
}

// GetColorCalendar fetches the published day colors for the period. Unknown
// colors and bad dates are skipped with a warning; the engine treats missing
// days with an explicit fallback anyway.
func (d *DataHub) GetColorCalendar(ctx context.Context, start, end time.Time) ([]types.ColorDay, error) {
	cacheKey := fmt.Sprintf("%d/%d", start.Unix(), end.Unix())
	d.mu.Lock()
	if cached, ok := d.cachedColors[cacheKey]; ok {
		d.mu.Unlock()
		return cached, nil
	}
	d.mu.Unlock()

	u, err := url.Parse(d.apiURL + "/calendar/colors")
	if err != nil {
		return nil, fmt.Errorf("invalid datahub url: %w", err)
	}
	params := url.Values{}
	params.Set("start", start.Format("2006-01-02"))
	params.Set("end", end.Format("2006-01-02"))
	u.RawQuery = params.Encode()

	body, err := d.get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var entries []colorEntry
	if err := json.NewDecoder(body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode color calendar response: %w", err)
	}

	days := make([]types.ColorDay, 0, len(entries))
	for _, entry := range entries {
		date, err := time.Parse("2006-01-02", entry.Date)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse color calendar date",
				slog.String("value", entry.Date), slog.Any("error", err))
			continue
		}
		color := types.Color(entry.Color)
		switch color {
		case types.ColorBlue, types.ColorWhite, types.ColorRed:
		default:
			log.Ctx(ctx).WarnContext(ctx, "unknown calendar color",
				slog.String("value", entry.Color), slog.String("date", entry.Date))
			continue
		}
		days = append(days, types.ColorDay{Date: date, Color: color})
	}

	log.Ctx(ctx).DebugContext(ctx, "fetched color calendar",
		slog.Time("start", start),
		slog.Time("end", end),
		slog.Int("count", len(days)),
	)

	d.mu.Lock()
	d.cachedColors[cacheKey] = days
	d.mu.Unlock()

	return days, nil
}

func (d *DataHub) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if d.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from datahub: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("datahub api returned status: %d", resp.StatusCode)
	}
	return resp.Body, nil
}
