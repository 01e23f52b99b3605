package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/semantic-meta-enrichment/frost-harvester/internal/config"
	"github.com/semantic-meta-enrichment/frost-harvester/internal/models"
)

type fakeFetcher struct {
	mu     sync.Mutex
	things []models.Thing
	err    error
	calls  int
	limits []int
}

func (f *fakeFetcher) FetchThings(ctx context.Context, limit int) ([]models.Thing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Thing, len(f.things))
	for i, t := range f.things {
		out[i] = t.Clone()
	}
	return out, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type countingFetcher struct {
	fakeFetcher
	total    int64
	countErr error
}

func (c *countingFetcher) Count(ctx context.Context) (int64, error) {
	return c.total, c.countErr
}

type upperTranslator struct {
	failOn int64
}

func (u *upperTranslator) TranslateThing(ctx context.Context, thing *models.Thing) (*models.Thing, error) {
	if thing.ID == u.failOn {
		return nil, errors.New("translate service unavailable")
	}
	out := thing.WithName("EN(" + thing.Name + ")")
	return &out, nil
}

type memoryStore struct {
	saved []models.HarvestRecord
	err   error
}

func (m *memoryStore) SaveThing(ctx context.Context, rec *models.HarvestRecord) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, *rec)
	return nil
}

// countingStore answers CountByRun from what it saved for that run.
type countingStore struct {
	memoryStore
	countErr error
	queried  []string
}

func (c *countingStore) CountByRun(ctx context.Context, runID string) (int, error) {
	c.queried = append(c.queried, runID)
	if c.countErr != nil {
		return 0, c.countErr
	}
	n := 0
	for _, rec := range c.saved {
		if rec.RunID == runID {
			n++
		}
	}
	return n, nil
}

type memorySink struct {
	name string
	got  []models.HarvestRecord
	err  error
}

func (m *memorySink) Name() string { return m.name }

func (m *memorySink) Publish(ctx context.Context, rec *models.HarvestRecord) error {
	if m.err != nil {
		return m.err
	}
	m.got = append(m.got, *rec)
	return nil
}

type memoryExporter struct {
	records []models.HarvestRecord
	calls   int
}

func (m *memoryExporter) Export(ctx context.Context, records []models.HarvestRecord) error {
	m.calls++
	m.records = records
	return nil
}

func harvestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Frost.BaseURL = "https://iot.hamburg.de/v1.1/"
	cfg.Frost.FetchLimit = 2
	cfg.Translation.Source = "de"
	cfg.Translation.Target = "en"
	return cfg
}

func twoThings() []models.Thing {
	return []models.Thing{
		{CommonFields: models.CommonFields{ID: 1, Name: "Pegel"}},
		{CommonFields: models.CommonFields{ID: 2, Name: "Wetterstation"}},
	}
}

func TestNewHarvestService_RequiresFetcher(t *testing.T) {
	_, err := NewHarvestService(harvestConfig(), HarvestDeps{}, zap.NewNop())
	assert.Error(t, err)
}

func TestRunOnce_FetchOnly(t *testing.T) {
	fetcher := &fakeFetcher{things: twoThings()}
	sink := &memorySink{name: "mem"}
	svc, err := NewHarvestService(harvestConfig(), HarvestDeps{
		Fetcher: fetcher,
		Sinks:   []ThingSink{sink},
	}, zap.NewNop())
	require.NoError(t, err)

	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Fetched)
	assert.Zero(t, result.Translated)
	assert.Zero(t, result.Stored)
	assert.Equal(t, 2, result.Published)
	assert.Equal(t, []int{2}, fetcher.limits)
	assert.Equal(t, int64(-1), result.ServerTotal)
	assert.Equal(t, -1, result.StoredRows)

	require.Len(t, sink.got, 2)
	assert.Equal(t, "https://iot.hamburg.de/v1.1", sink.got[0].Source)
	assert.Equal(t, "de", sink.got[0].Lang)
	assert.False(t, sink.got[0].Translated)
	assert.Equal(t, result.RunID, sink.got[1].RunID)
}

func TestRunOnce_TranslateStoreExport(t *testing.T) {
	store := &memoryStore{}
	sink := &memorySink{name: "mem"}
	exporter := &memoryExporter{}
	svc, err := NewHarvestService(harvestConfig(), HarvestDeps{
		Fetcher:    &fakeFetcher{things: twoThings()},
		Translator: &upperTranslator{failOn: -1},
		Store:      store,
		Sinks:      []ThingSink{sink},
		Exporter:   exporter,
	}, zap.NewNop())
	require.NoError(t, err)

	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Translated)
	assert.Equal(t, 4, result.Stored)
	assert.Equal(t, 4, result.Published)

	require.Len(t, store.saved, 4)
	assert.Equal(t, "Pegel", store.saved[0].Thing.Name)
	assert.Equal(t, "de", store.saved[0].Lang)
	assert.Equal(t, "EN(Pegel)", store.saved[1].Thing.Name)
	assert.Equal(t, "en", store.saved[1].Lang)
	assert.True(t, store.saved[1].Translated)

	assert.Equal(t, 1, exporter.calls)
	assert.Len(t, exporter.records, 4)
}

func TestRunOnce_ReportsServerTotalAndStoredRows(t *testing.T) {
	fetcher := &countingFetcher{fakeFetcher: fakeFetcher{things: twoThings()}, total: 1320}
	store := &countingStore{}
	svc, err := NewHarvestService(harvestConfig(), HarvestDeps{
		Fetcher:    fetcher,
		Translator: &upperTranslator{failOn: -1},
		Store:      store,
	}, zap.NewNop())
	require.NoError(t, err)

	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1320), result.ServerTotal)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 4, result.Stored)
	assert.Equal(t, 4, result.StoredRows)
	assert.Equal(t, []string{result.RunID}, store.queried)
}

func TestRunOnce_CountFailuresAreNotFatal(t *testing.T) {
	fetcher := &countingFetcher{
		fakeFetcher: fakeFetcher{things: twoThings()},
		countErr:    errors.New("count not supported"),
	}
	store := &countingStore{countErr: errors.New("relation does not exist")}
	svc, err := NewHarvestService(harvestConfig(), HarvestDeps{
		Fetcher: fetcher,
		Store:   store,
	}, zap.NewNop())
	require.NoError(t, err)

	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(-1), result.ServerTotal)
	assert.Equal(t, -1, result.StoredRows)
	assert.Equal(t, 2, result.Stored)
}

func TestRunOnce_TranslationErrorAbortsRun(t *testing.T) {
	store := &memoryStore{}
	exporter := &memoryExporter{}
	svc, err := NewHarvestService(harvestConfig(), HarvestDeps{
		Fetcher:    &fakeFetcher{things: twoThings()},
		Translator: &upperTranslator{failOn: 2},
		Store:      store,
		Exporter:   exporter,
	}, zap.NewNop())
	require.NoError(t, err)

	result, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "translate service unavailable")
	assert.Equal(t, 1, result.Translated)
	assert.Len(t, store.saved, 2)
	assert.Zero(t, exporter.calls)
}

func TestRunOnce_FetchError(t *testing.T) {
	svc, err := NewHarvestService(harvestConfig(), HarvestDeps{
		Fetcher: &fakeFetcher{err: &models.ValidationError{Entity: "Thing", Field: "name", Reason: "missing"}},
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.RunOnce(context.Background())
	var ve *models.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestRunOnce_StoreErrorAbortsRun(t *testing.T) {
	sink := &memorySink{name: "mem"}
	svc, err := NewHarvestService(harvestConfig(), HarvestDeps{
		Fetcher: &fakeFetcher{things: twoThings()},
		Store:   &memoryStore{err: errors.New("disk full")},
		Sinks:   []ThingSink{sink},
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Empty(t, sink.got)
}

func TestRunOnce_SinkErrorsAreCounted(t *testing.T) {
	good := &memorySink{name: "good"}
	bad := &memorySink{name: "bad", err: errors.New("broker down")}
	svc, err := NewHarvestService(harvestConfig(), HarvestDeps{
		Fetcher: &fakeFetcher{things: twoThings()},
		Sinks:   []ThingSink{bad, good},
	}, zap.NewNop())
	require.NoError(t, err)

	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Published)
	assert.Equal(t, 2, result.PublishErrors)
	assert.Len(t, good.got, 2)
}

func TestRunOnce_EmptyFetch(t *testing.T) {
	exporter := &memoryExporter{}
	svc, err := NewHarvestService(harvestConfig(), HarvestDeps{
		Fetcher:  &fakeFetcher{things: []models.Thing{}},
		Exporter: exporter,
	}, zap.NewNop())
	require.NoError(t, err)

	result, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Fetched)
	assert.Equal(t, 1, exporter.calls)
	assert.Empty(t, exporter.records)
}

func TestStart_RunOnceMode(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	svc, err := NewHarvestService(harvestConfig(), HarvestDeps{Fetcher: fetcher}, zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, svc.Start(context.Background()))
	assert.Equal(t, 1, fetcher.Calls())
}

func TestStart_PollingMode(t *testing.T) {
	cfg := harvestConfig()
	cfg.Harvest.Interval = 10 * time.Millisecond
	fetcher := &fakeFetcher{err: errors.New("frost down")}
	svc, err := NewHarvestService(cfg, HarvestDeps{Fetcher: fetcher}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	assert.Eventually(t, func() bool { return fetcher.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStop_RunsClosersInReverse(t *testing.T) {
	var order []string
	svc, err := NewHarvestService(harvestConfig(), HarvestDeps{
		Fetcher: &fakeFetcher{},
		Closers: []func() error{
			func() error { order = append(order, "db"); return nil },
			func() error { order = append(order, "redis"); return errors.New("already closed") },
			func() error { order = append(order, "mqtt"); return nil },
		},
	}, zap.NewNop())
	require.NoError(t, err)

	err = svc.Stop(context.Background())
	assert.EqualError(t, err, "already closed")
	assert.Equal(t, []string{"mqtt", "redis", "db"}, order)

	assert.NoError(t, svc.Stop(context.Background()))
}

func TestBuildHarvestDeps_Minimal(t *testing.T) {
	cfg := harvestConfig()
	cfg.Harvest.ExportPath = t.TempDir() + "/things.xlsx"

	deps, err := BuildHarvestDeps(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.IsType(t, &FrostClient{}, deps.Fetcher)
	assert.Nil(t, deps.Translator)
	assert.Nil(t, deps.Store)
	assert.Empty(t, deps.Sinks)
	assert.NotNil(t, deps.Exporter)
	assert.Empty(t, deps.Closers)

	cfg.Translation.Enabled = true
	cfg.Translation.Endpoint = "http://translate:5000"
	deps, err = BuildHarvestDeps(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &TranslationClient{}, deps.Translator)
}
