package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/semantic-meta-enrichment/frost-harvester/internal/models"
)

const (
	DefaultSourceLang = "de"
	DefaultTargetLang = "en"
)

// ErrMissingTranslation is returned when the response has no translatedText.
var ErrMissingTranslation = errors.New("translation response has no translatedText")

// TranslationOptions tunes a TranslationClient. The zero value translates de to en.
type TranslationOptions struct {
	Source  string
	Target  string
	APIKey  string
	Timeout time.Duration
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText *string `json:"translatedText"`
	Error          string  `json:"error,omitempty"`
}

// TranslationClient sends text to a LibreTranslate-compatible endpoint,
// one request per string. Nothing is cached or batched.
type TranslationClient struct {
	httpClient *resty.Client
	url        string
	opts       TranslationOptions
	logger     *zap.Logger
}

// NewTranslationClient creates a client posting to {url}/translate.
func NewTranslationClient(url string, opts TranslationOptions, logger *zap.Logger) *TranslationClient {
	if opts.Source == "" {
		opts.Source = DefaultSourceLang
	}
	if opts.Target == "" {
		opts.Target = DefaultTargetLang
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &TranslationClient{
		httpClient: client,
		url:        strings.TrimRight(url, "/"),
		opts:       opts,
		logger:     logger,
	}
}

// TranslateText translates a single string.
func (c *TranslationClient) TranslateText(ctx context.Context, text string) (string, error) {
	var result translateResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(translateRequest{
			Q:      text,
			Source: c.opts.Source,
			Target: c.opts.Target,
			APIKey: c.opts.APIKey,
		}).
		SetResult(&result).
		SetError(&result).
		ForceContentType("application/json").
		Post(c.url + "/translate")
	if err != nil {
		return "", fmt.Errorf("failed to call translation API: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("translation API error: %s (status: %d)", result.Error, resp.StatusCode())
	}
	if result.TranslatedText == nil {
		return "", ErrMissingTranslation
	}

	c.logger.Debug("Translated text",
		zap.String("source", c.opts.Source),
		zap.String("target", c.opts.Target),
		zap.Int("length", len(text)),
	)
	return *result.TranslatedText, nil
}

// TranslateValue translates strings, recursing into lists and objects.
// Object keys are translated as well. Other values are returned unchanged.
func (c *TranslationClient) TranslateValue(ctx context.Context, v any) (any, error) {
	switch val := v.(type) {
	case string:
		return c.TranslateText(ctx, val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			translated, err := c.TranslateValue(ctx, item)
			if err != nil {
				return nil, err
			}
			out[i] = translated
		}
		return out, nil
	case map[string]any:
		return c.translateMap(ctx, val)
	default:
		return v, nil
	}
}

// translateMap walks keys in sorted order so the request sequence is stable.
func (c *TranslationClient) translateMap(ctx context.Context, m map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, k := range keys {
		key, err := c.TranslateText(ctx, k)
		if err != nil {
			return nil, err
		}
		value, err := c.TranslateValue(ctx, m[k])
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

// translateProperties keeps nil as nil and {} as {}.
func (c *TranslationClient) translateProperties(ctx context.Context, props map[string]any) (map[string]any, error) {
	if props == nil {
		return nil, nil
	}
	if len(props) == 0 {
		return map[string]any{}, nil
	}
	return c.translateMap(ctx, props)
}

// TranslateThing returns a translated copy of thing. The input is not modified.
// Any failed call aborts the whole translation.
func (c *TranslationClient) TranslateThing(ctx context.Context, thing *models.Thing) (*models.Thing, error) {
	name, err := c.TranslateText(ctx, thing.Name)
	if err != nil {
		return nil, fmt.Errorf("thing %d name: %w", thing.ID, err)
	}
	description, err := c.TranslateText(ctx, thing.Description)
	if err != nil {
		return nil, fmt.Errorf("thing %d description: %w", thing.ID, err)
	}
	props, err := c.translateProperties(ctx, thing.Properties)
	if err != nil {
		return nil, fmt.Errorf("thing %d properties: %w", thing.ID, err)
	}

	datastreams := make([]models.Datastream, 0, len(thing.Datastreams))
	for _, ds := range thing.Datastreams {
		translated, err := c.translateDatastream(ctx, ds)
		if err != nil {
			return nil, fmt.Errorf("thing %d datastream %d: %w", thing.ID, ds.ID, err)
		}
		datastreams = append(datastreams, translated)
	}

	out := thing.WithName(name).
		WithDescription(description).
		WithProperties(props).
		WithDatastreams(datastreams)

	c.logger.Info("Translated Thing",
		zap.Int64("thing_id", thing.ID),
		zap.Int("datastreams", len(datastreams)),
	)
	return &out, nil
}

func (c *TranslationClient) translateDatastream(ctx context.Context, ds models.Datastream) (models.Datastream, error) {
	sensorName, err := c.TranslateText(ctx, ds.Sensor.Name)
	if err != nil {
		return models.Datastream{}, err
	}
	sensorDescription, err := c.TranslateText(ctx, ds.Sensor.Description)
	if err != nil {
		return models.Datastream{}, err
	}
	name, err := c.TranslateText(ctx, ds.Name)
	if err != nil {
		return models.Datastream{}, err
	}
	description, err := c.TranslateText(ctx, ds.Description)
	if err != nil {
		return models.Datastream{}, err
	}
	uom, err := c.translateProperties(ctx, ds.UnitOfMeasurement)
	if err != nil {
		return models.Datastream{}, err
	}
	props, err := c.translateProperties(ctx, ds.Properties)
	if err != nil {
		return models.Datastream{}, err
	}

	sensor := ds.Sensor.WithName(sensorName).WithDescription(sensorDescription)
	return ds.WithName(name).
		WithDescription(description).
		WithUnitOfMeasurement(uom).
		WithProperties(props).
		WithSensor(sensor), nil
}
