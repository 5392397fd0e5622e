/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/status/pkg/observability/metrics"
)

var logger = metrics.Logger

var (
	createOnce sync.Once       //nolint:gochecknoglobals
	instance   metrics.Metrics //nolint:gochecknoglobals
)

type promProvider struct {
	httpServer *http.Server
}

// NewPrometheusProvider creates new instance of Prometheus Metrics Provider.
func NewPrometheusProvider(httpServer *http.Server) metrics.Provider {
	return &promProvider{httpServer: httpServer}
}

// Create creates/initializes the prometheus metrics provider.
func (pp *promProvider) Create() error {
	if pp.httpServer == nil {
		return nil
	}

	go func() {
		if err := pp.httpServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics HTTP server stopped", log.WithError(err))
		}
	}()

	return nil
}

// Metrics returns supported metrics.
func (pp *promProvider) Metrics() metrics.Metrics {
	return GetMetrics()
}

// Destroy destroys the prometheus metrics provider.
func (pp *promProvider) Destroy() error {
	if pp.httpServer != nil {
		return pp.httpServer.Shutdown(context.Background())
	}

	return nil
}

// GetMetrics returns metrics implementation.
func GetMetrics() metrics.Metrics {
	createOnce.Do(func() {
		instance = NewMetrics()
	})

	return instance
}

// PromMetrics manages the metrics for the status service.
type PromMetrics struct {
	updateStatusTime     prometheus.Histogram
	statusListRefresh    prometheus.Histogram
	statusUpdateConflict prometheus.Counter
	cacheHit             prometheus.Counter
	cacheMiss            prometheus.Counter
}

// NewMetrics creates instance of prometheus metrics.
func NewMetrics() metrics.Metrics {
	pm := &PromMetrics{
		updateStatusTime:     newUpdateStatusTime(),
		statusListRefresh:    newStatusListRefreshTime(),
		statusUpdateConflict: newStatusUpdateConflict(),
		cacheHit:             newCacheHit(),
		cacheMiss:            newCacheMiss(),
	}

	registerMetrics(pm)

	return pm
}

// UpdateCredentialStatusTime records the time for a credential status update.
func (pm *PromMetrics) UpdateCredentialStatusTime(value time.Duration) {
	pm.updateStatusTime.Observe(value.Seconds())

	logger.Debug("UpdateCredentialStatus service call time", log.WithDuration(value))
}

// StatusListRefreshTime records the time for a status list re-sign.
func (pm *PromMetrics) StatusListRefreshTime(value time.Duration) {
	pm.statusListRefresh.Observe(value.Seconds())

	logger.Debug("Status list refresh time", log.WithDuration(value))
}

// StatusUpdateConflict counts optimistic-concurrency retries of status updates.
func (pm *PromMetrics) StatusUpdateConflict() {
	pm.statusUpdateConflict.Inc()
}

// CacheHit counts SLC cache hits.
func (pm *PromMetrics) CacheHit() {
	pm.cacheHit.Inc()
}

// CacheMiss counts SLC cache misses.
func (pm *PromMetrics) CacheMiss() {
	pm.cacheMiss.Inc()
}

func registerMetrics(pm *PromMetrics) {
	prometheus.MustRegister(
		pm.updateStatusTime, pm.statusListRefresh, pm.statusUpdateConflict,
		pm.cacheHit, pm.cacheMiss,
	)
}

func newCounter(subsystem, name, help string, labels prometheus.Labels) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   metrics.Namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	})
}

func newHistogram(subsystem, name, help string, labels prometheus.Labels) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   metrics.Namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: labels,
	})
}

func newUpdateStatusTime() prometheus.Histogram {
	return newHistogram(
		metrics.Service, metrics.UpdateCredentialStatusTimeMetric,
		"The time (in seconds) it takes to execute UpdateCredentialStatus service call.",
		nil,
	)
}

func newStatusListRefreshTime() prometheus.Histogram {
	return newHistogram(
		metrics.Service, metrics.StatusListRefreshTimeMetric,
		"The time (in seconds) it takes to re-sign a status list credential.",
		nil,
	)
}

func newStatusUpdateConflict() prometheus.Counter {
	return newCounter(
		metrics.Service, metrics.StatusUpdateConflictMetric,
		"The number of status update attempts retried after a sequence conflict.",
		nil,
	)
}

func newCacheHit() prometheus.Counter {
	return newCounter(
		metrics.Cache, metrics.CacheHitMetric,
		"The number of SLC cache hits.",
		nil,
	)
}

func newCacheMiss() prometheus.Counter {
	return newCounter(
		metrics.Cache, metrics.CacheMissMetric,
		"The number of SLC cache misses.",
		nil,
	)
}
