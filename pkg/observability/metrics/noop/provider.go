/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package noop

import (
	"time"

	"github.com/trustbloc/status/pkg/observability/metrics"
)

// NoMetrics provides default no operation implementation for the Metrics interface.
type NoMetrics struct{}

// GetMetrics returns metrics implementation.
func GetMetrics() metrics.Metrics {
	return &NoMetrics{}
}

func (n *NoMetrics) UpdateCredentialStatusTime(_ time.Duration) {}
func (n *NoMetrics) StatusListRefreshTime(_ time.Duration)      {}
func (n *NoMetrics) StatusUpdateConflict()                      {}
func (n *NoMetrics) CacheHit()                                  {}
func (n *NoMetrics) CacheMiss()                                 {}
