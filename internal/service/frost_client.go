package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/semantic-meta-enrichment/frost-harvester/internal/models"
)

const (
	// NoLimit fetches every Thing the listing exposes.
	NoLimit = -1

	// DefaultPageDelay keeps pagination at a polite request rate.
	DefaultPageDelay = 100 * time.Millisecond

	thingsExpand         = "Datastreams($expand=Sensor)"
	thingsExpandObserved = "Datastreams($expand=Sensor,ObservedProperty)"
	nextLinkField        = "@iot.nextLink"
	countField           = "@iot.count"
)

// FrostOptions tunes a FrostClient. The zero value uses the defaults.
type FrostOptions struct {
	PageDelay              time.Duration
	Timeout                time.Duration
	ExpandObservedProperty bool
}

// FrostClient reads Things from a SensorThings (FROST) server.
type FrostClient struct {
	httpClient *resty.Client
	baseURL    string
	opts       FrostOptions
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewFrostClient creates a client for baseURL, e.g. "https://iot.hamburg.de/v1.1".
// Trailing slashes are dropped.
func NewFrostClient(baseURL string, opts FrostOptions, logger *zap.Logger) *FrostClient {
	if opts.PageDelay <= 0 {
		opts.PageDelay = DefaultPageDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	return &FrostClient{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		opts:       opts,
		logger:     logger,
		sleep:      sleepContext,
	}
}

// BaseURL returns the normalized base URL.
func (c *FrostClient) BaseURL() string {
	return c.baseURL
}

func (c *FrostClient) thingsURL() string {
	expand := thingsExpand
	if c.opts.ExpandObservedProperty {
		expand = thingsExpandObserved
	}
	return c.baseURL + "/Things?$expand=" + expand
}

// FetchThings walks the Things listing, following @iot.nextLink, and returns
// at most limit validated Things (NoLimit for all of them).
//
// Transport failures on any page are logged and yield an empty result with a
// nil error; whatever earlier pages produced is discarded. A payload that does
// not validate is returned as an error.
func (c *FrostClient) FetchThings(ctx context.Context, limit int) ([]models.Thing, error) {
	things := []models.Thing{}
	url := c.thingsURL()
	page := 0

	for url != "" {
		page++
		c.logger.Info("Fetching FROST page",
			zap.Int("page", page),
			zap.String("url", url),
		)

		body, err := c.get(ctx, url)
		if err != nil {
			c.logger.Error("Error fetching Things",
				zap.Int("page", page),
				zap.String("url", url),
				zap.Error(err),
			)
			return []models.Thing{}, nil
		}

		data, err := decodePage(body)
		if err != nil {
			return nil, err
		}

		if rawValue, ok := data["value"]; ok {
			items, ok := rawValue.([]any)
			if !ok {
				return nil, fmt.Errorf("page %d: value is not an array", page)
			}
			for i, item := range items {
				if len(things) == limit {
					c.logger.Info("Fetch limit reached",
						zap.Int("limit", limit),
						zap.Int("pages", page),
					)
					return things, nil
				}
				obj, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("page %d item %d: %w", page, i,
						&models.ValidationError{Entity: "Thing", Reason: "must be a JSON object"})
				}
				thing, err := models.ValidateThing(obj)
				if err != nil {
					return nil, fmt.Errorf("page %d item %d: %w", page, i, err)
				}
				things = append(things, *thing)
			}
			c.logger.Debug("Added Things from page",
				zap.Int("page", page),
				zap.Int("count", len(items)),
				zap.Int("total", len(things)),
			)
		}

		if len(things) == limit {
			return things, nil
		}

		url = ""
		if next, ok := data[nextLinkField].(string); ok {
			url = next
		}

		if url != "" {
			if err := c.sleep(ctx, c.opts.PageDelay); err != nil {
				c.logger.Error("Error fetching Things", zap.Error(err))
				return []models.Thing{}, nil
			}
		}
	}

	return things, nil
}

// Count asks the server for the total number of Things.
func (c *FrostClient) Count(ctx context.Context) (int64, error) {
	body, err := c.get(ctx, c.baseURL+"/Things?$top=0&$count=true")
	if err != nil {
		return 0, fmt.Errorf("failed to count Things: %w", err)
	}
	data, err := decodePage(body)
	if err != nil {
		return 0, err
	}
	n, ok := data[countField].(json.Number)
	if !ok {
		return 0, fmt.Errorf("response has no %s", countField)
	}
	return n.Int64()
}

func (c *FrostClient) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func decodePage(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode FROST response: %w", err)
	}
	return data, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
