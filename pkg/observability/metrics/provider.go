/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"
)

// Logger used by different metrics provider.
var Logger = log.New("metrics-provider")

// Constants used by different metrics provider.
const (
	// Namespace Organization namespace.
	Namespace = "status"

	// Service operations.
	Service                          = "service"
	UpdateCredentialStatusTimeMetric = "service_updateCredentialStatus_seconds"
	StatusListRefreshTimeMetric      = "service_statusListRefresh_seconds"
	StatusUpdateConflictMetric       = "service_statusUpdateConflict_total"

	// Cache operations.
	Cache           = "cache"
	CacheHitMetric  = "cache_hit_total"
	CacheMissMetric = "cache_miss_total"
)

// Provider is an interface for metrics provider.
type Provider interface {
	// Create creates a metrics provider instance
	Create() error
	// Destroy destroys the metrics provider instance
	Destroy() error
	// Metrics providers metrics
	Metrics() Metrics
}

// Metrics is an interface for the metrics to be supported by the provider.
type Metrics interface {
	UpdateCredentialStatusTime(value time.Duration)
	StatusListRefreshTime(value time.Duration)
	StatusUpdateConflict()
	CacheHit()
	CacheMiss()
}
