// Package upstream fetches one event's schedule or session data from
// the timing API. The payload is loosely typed; rows leave this package
// as map[string]any and are coerced at the staging boundary.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/racedecoder/f1-warehouse-go/log"
	"github.com/racedecoder/f1-warehouse-go/pkg/coerce"
	"github.com/racedecoder/f1-warehouse-go/pkg/ident"
	"github.com/racedecoder/f1-warehouse-go/pkg/model"
)

const (
	scheduleAttempts = 5
	sessionAttempts  = 4
	defaultBaseDelay = 2 * time.Second
)

// SessionExtract is one event's raw session payload plus resolved
// event metadata.
type SessionExtract struct {
	Season           int
	Round            int
	SessionType      string
	RaceID           string
	EventName        string
	Circuit          *string
	Country          *string
	RaceDatetimeUTC  *time.Time
	UpstreamEventKey string
	Laps             []map[string]any
	Results          []map[string]any
	Weather          []map[string]any
}

type (
	Option func(*Client)
	Client struct {
		baseURL   string
		hc        *http.Client
		cache     *diskCache
		cacheDir  string
		logger    *log.Logger
		baseDelay time.Duration
		timer     backoff.Timer
	}
)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithCacheDir enables the on-disk response cache.
func WithCacheDir(dir string) Option {
	return func(c *Client) { c.cacheDir = dir }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetryBase overrides the base backoff delay (mainly for tests).
func WithRetryBase(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		hc:        &http.Client{Timeout: 60 * time.Second},
		logger:    log.Default().Named("upstream"),
		baseDelay: defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheDir != "" {
		cache, err := openDiskCache(c.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("open upstream cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

func (c *Client) Close() error {
	if c.cache != nil {
		return c.cache.close()
	}
	return nil
}

// FetchSchedule returns the season's event rows, already keyed by race_id.
//
//nolint:whitespace // can't make both editor and linter happy
func (c *Client) FetchSchedule(
	ctx context.Context, season int, sessionType string,
) ([]model.ScheduleEvent, error) {
	path := fmt.Sprintf("/schedule/%d", season)
	label := fmt.Sprintf("schedule fetch season=%d", season)
	sched := retrySchedule{attempts: scheduleAttempts, base: c.baseDelay}

	return withRetries(ctx, c.logger, label, sched, c.timer,
		func() ([]model.ScheduleEvent, error) {
			doc, err := c.getJSON(ctx, path, validSchedule(season))
			if err != nil {
				return nil, err
			}
			rows := jsonPathMaps(doc, "$.events[*]")
			events := make([]model.ScheduleEvent, 0, len(rows))
			for _, row := range rows {
				round := coerce.Int(row["RoundNumber"])
				name := coerce.String(row["EventName"])
				if round == nil || name == nil {
					continue
				}
				key := coerce.String(row["OfficialEventName"])
				if key == nil {
					key = name
				}
				events = append(events, model.ScheduleEvent{
					RaceID:           ident.RaceID(season, *round, sessionType),
					Season:           season,
					Round:            *round,
					EventName:        *name,
					Circuit:          coerce.String(row["Location"]),
					Country:          coerce.String(row["Country"]),
					RaceDatetimeUTC:  coerce.TimeUTC(row["EventDate"]),
					UpstreamEventKey: key,
					SessionType:      sessionType,
				})
			}
			return events, nil
		})
}

// FetchSession returns one event's full session payload.
//
//nolint:whitespace // can't make both editor and linter happy
func (c *Client) FetchSession(
	ctx context.Context, season, round int, sessionType string,
) (*SessionExtract, error) {
	path := fmt.Sprintf("/session/%d/%d/%s", season, round, sessionType)
	label := fmt.Sprintf("session fetch season=%d round=%d type=%s",
		season, round, sessionType)
	sched := retrySchedule{attempts: sessionAttempts, base: c.baseDelay}

	raceID := ident.RaceID(season, round, sessionType)
	return withRetries(ctx, c.logger, label, sched, c.timer,
		func() (*SessionExtract, error) {
			doc, err := c.getJSON(ctx, path, validSession(raceID))
			if err != nil {
				return nil, err
			}
			laps := jsonPathMaps(doc, "$.laps[*]")
			meta := map[string]any{}
			if m := jsonPathMaps(doc, "$.event"); len(m) > 0 {
				meta = m[0]
			}
			eventName := fmt.Sprintf("%d Round %d", season, round)
			if n := coerce.String(meta["EventName"]); n != nil {
				eventName = *n
			}
			eventKey := eventName
			if k := coerce.String(meta["OfficialEventName"]); k != nil {
				eventKey = *k
			}

			return &SessionExtract{
				Season:           season,
				Round:            round,
				SessionType:      sessionType,
				RaceID:           raceID,
				EventName:        eventName,
				Circuit:          coerce.String(meta["Location"]),
				Country:          coerce.String(meta["Country"]),
				RaceDatetimeUTC:  coerce.TimeUTC(meta["SessionDate"]),
				UpstreamEventKey: eventKey,
				Laps:             laps,
				Results:          jsonPathMaps(doc, "$.results[*]"),
				Weather:          jsonPathMaps(doc, "$.weather[*]"),
			}, nil
		})
}

// validSchedule accepts a schedule document with at least one usable
// event row.
func validSchedule(season int) func(doc any) error {
	return func(doc any) error {
		for _, row := range jsonPathMaps(doc, "$.events[*]") {
			if coerce.Int(row["RoundNumber"]) != nil &&
				coerce.String(row["EventName"]) != nil {
				return nil
			}
		}
		return fmt.Errorf("%w: no usable schedule rows for season=%d",
			ErrInvalidPayload, season)
	}
}

// validSession accepts a session document that carries lap rows.
func validSession(raceID string) func(doc any) error {
	return func(doc any) error {
		if len(jsonPathMaps(doc, "$.laps[*]")) == 0 {
			return fmt.Errorf("%w: no lap rows for %s", ErrInvalidPayload, raceID)
		}
		return nil
	}
}

// getJSON fetches a path, consulting the on-disk cache first. A fresh
// response is cached only after validate accepts it; an upstream that
// temporarily serves an empty-but-parseable payload can recover on the
// next fetch instead of the bad body sticking in the cache.
//
//nolint:whitespace // can't make both editor and linter happy
func (c *Client) getJSON(
	ctx context.Context, path string, validate func(doc any) error,
) (any, error) {
	if c.cache != nil {
		if data, ok := c.cache.get(path); ok {
			doc, err := oj.Parse(data)
			if err == nil && validate(doc) == nil {
				c.logger.Debug("upstream cache hit", log.String("path", path))
				return doc, nil
			}
			// stale invalid entry, refetch
		}
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream request %s: unexpected status %d",
			path, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upstream request %s: %w", path, err)
	}
	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("upstream request %s: %w", path, err)
	}
	if err := validate(doc); err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.put(path, data); err != nil {
			c.logger.Warn("could not cache upstream response",
				log.String("path", path), log.ErrorField(err))
		}
	}
	return doc, nil
}

// jsonPathMaps evaluates a JSONPath expression and keeps the object hits.
func jsonPathMaps(doc any, path string) []map[string]any {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil
	}
	hits := expr.Get(doc)
	rows := make([]map[string]any, 0, len(hits))
	for _, hit := range hits {
		if m, ok := hit.(map[string]any); ok {
			rows = append(rows, m)
		}
	}
	return rows
}
