// Package datadog implements a Datadog backend for internal/metrics.
//
// Observations are buffered in memory under a mutex, flushed on a
// ticker, and flushed one final time on Close. Periodic flushing keeps
// long server runs visible as a time series; the Close flush covers
// short CLI runs. Flush snapshots and resets the buffers under the
// lock, then submits out of it.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/shpitdev/reshape/internal/metrics"
)

// Options controls the backend.
type Options struct {
	// Tags are extra Datadog tags (e.g. []string{"team:data"}). The
	// backend always adds service:reshape and an env tag.
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them; tests use
	// them to avoid real HTTP and nondeterministic clocks.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the slice of the Datadog SDK the backend needs.
// The SDK exposes a concrete *datadogV2.MetricsApi; depending on this
// interface instead lets tests submit to a fake.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// seriesKey identifies one buffered series: a metric name plus its
// canonical tag string.
type seriesKey struct {
	name string
	tags string
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu        sync.Mutex
	counters  map[seriesKey]float64
	durations map[seriesKey][]float64
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend constructs a Datadog backend using the official client.
// The API key is read from the environment by the SDK (DD_API_KEY);
// callers gate construction on its presence.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, "service:reshape", resolveEnvTag())
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counters:   make(map[seriesKey]float64),
		durations:  make(map[seriesKey][]float64),
	}
	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)
	t := b.newTicker(b.flushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and performs one final Flush. Close once;
// a second Close panics on the closed channel like any other
// process-lifetime backend.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend. Non-positive deltas are
// dropped.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	k := seriesKey{name: name, tags: canonicalTags(labels)}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counters[k] += delta
}

// ObserveDuration implements metrics.Backend. Negative samples are
// dropped.
func (b *Backend) ObserveDuration(name string, seconds float64, labels metrics.Labels) {
	if seconds < 0 {
		return
	}
	k := seriesKey{name: name, tags: canonicalTags(labels)}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.durations[k] = append(b.durations[k], seconds)
}

type snapshot struct {
	counters  map[seriesKey]float64
	durations map[seriesKey][]float64
}

func (s snapshot) isEmpty() bool {
	return len(s.counters) == 0 && len(s.durations) == 0
}

// snapshotAndReset detaches the current buffers so submission happens
// out of the lock. Buffers reset even if the submission later fails;
// observation must never block on Datadog.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := snapshot{counters: b.counters, durations: b.durations}
	b.counters = make(map[seriesKey]float64)
	b.durations = make(map[seriesKey][]float64)
	return s
}

// Flush submits buffered metrics and resets the buffers. Returns nil
// when there is nothing to submit.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}
	series := b.buildSeries(snap, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries is pure (no locks, clocks, or network) so tests can pin
// its naming and tagging contract.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.counters)+4*len(s.durations))

	for k, v := range s.counters {
		if v == 0 {
			continue
		}
		series = append(series, countSeries(dotName(k.name), v, b.tagsFor(k), nowUnix))
	}

	for k, samples := range s.durations {
		if len(samples) == 0 {
			continue
		}
		cp := append([]float64(nil), samples...)
		sort.Float64s(cp)
		name := dotName(k.name)
		tags := b.tagsFor(k)
		series = append(series,
			gaugeSeries(name+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix),
			gaugeSeries(name+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix),
			gaugeSeries(name+".max", cp[len(cp)-1], tags, nowUnix),
			gaugeSeries(name+".samples", float64(len(cp)), tags, nowUnix),
		)
	}

	return series
}

func (b *Backend) tagsFor(k seriesKey) []string {
	out := make([]string, 0, len(b.baseTags)+2)
	out = append(out, b.baseTags...)
	if k.tags != "" {
		out = append(out, strings.Split(k.tags, ",")...)
	}
	return out
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

// dotName rewrites snake_case metric names to the dotted Datadog
// convention: reshape_plans_total becomes reshape.plans.total.
func dotName(name string) string {
	return strings.ReplaceAll(name, "_", ".")
}

// canonicalTags encodes labels as a sorted "k:v,k:v" string so equal
// label sets always land on the same buffered series.
func canonicalTags(labels metrics.Labels) string {
	if len(labels) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+":"+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// ParseTagsCSV parses comma-separated tags like "team:data,region:eu".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}
