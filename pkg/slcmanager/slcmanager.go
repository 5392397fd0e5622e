/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package slcmanager manages signed status list credential (SLC) records:
// creation, cached and uncached reads, optimistic-concurrency writes, and
// expiry-driven re-signing.
package slcmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go/component/models/verifiable"
	jsonld "github.com/piprate/json-gold/ld"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/status/internal/logfields"
	"github.com/trustbloc/status/pkg/cache"
	"github.com/trustbloc/status/pkg/doc/status/statustype"
	"github.com/trustbloc/status/pkg/service/credentialstatus"
)

var logger = log.New("slc-manager")

// defaultExpirySkew is the margin ahead of the wall clock within which an SLC
// is already treated as expired, so consumers never receive a list that
// expires in flight.
const defaultExpirySkew = 5 * time.Minute

type metricsProvider interface {
	StatusListRefreshTime(value time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) StatusListRefreshTime(time.Duration) {}

// Config holds the dependencies of Manager.
type Config struct {
	SLCStore       credentialstatus.SLCStore
	Cache          *cache.DocumentCache
	Issuer         credentialstatus.Issuer
	DocumentLoader jsonld.DocumentLoader
	// ExpirySkew overrides defaultExpirySkew when positive.
	ExpirySkew time.Duration
	Metrics    metricsProvider
}

// Manager implements SLC record management on top of a versioned store.
type Manager struct {
	store          credentialstatus.SLCStore
	cache          *cache.DocumentCache
	issuer         credentialstatus.Issuer
	documentLoader jsonld.DocumentLoader
	expirySkew     time.Duration
	metrics        metricsProvider
}

// New creates a Manager.
func New(config *Config) (*Manager, error) {
	if config.SLCStore == nil {
		return nil, errors.New("slc store is required")
	}

	if config.Cache == nil {
		return nil, errors.New("cache is required")
	}

	if config.Issuer == nil {
		return nil, errors.New("issuer is required")
	}

	if config.DocumentLoader == nil {
		return nil, errors.New("document loader is required")
	}

	skew := config.ExpirySkew
	if skew <= 0 {
		skew = defaultExpirySkew
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Manager{
		store:          config.SLCStore,
		cache:          config.Cache,
		issuer:         config.Issuer,
		documentLoader: config.DocumentLoader,
		expirySkew:     skew,
		metrics:        metrics,
	}, nil
}

// Create builds, signs and stores a new SLC record at sequence 0. Creating a
// record under an existing status list ID fails with
// credentialstatus.ErrConflict.
func (m *Manager) Create(ctx context.Context, instance *credentialstatus.Instance,
	params credentialstatus.CreateStatusListParams) (*credentialstatus.SLCWrapper, error) {
	processor, err := statustype.GetProcessor(params.Type)
	if err != nil {
		return nil, &credentialstatus.NotSupportedError{ListType: string(params.Type)}
	}

	if params.Length <= 0 || params.Length > instance.MaxListSize {
		return nil, credentialstatus.NewDataErrorf(
			"status list length %d must be between 1 and %d", params.Length, instance.MaxListSize)
	}

	if params.StatusPurpose != statustype.StatusPurposeRevocation &&
		params.StatusPurpose != statustype.StatusPurposeSuspension {
		return nil, credentialstatus.NewDataErrorf("unsupported status purpose %s", params.StatusPurpose)
	}

	if params.IndexAllocator == "" {
		return nil, credentialstatus.NewDataErrorf("index allocator is required")
	}

	suffix, err := credentialstatus.ListSuffix(instance, params.StatusListID)
	if err != nil {
		return nil, credentialstatus.NewDataError(err)
	}

	if !strings.HasSuffix(params.CredentialID, suffix) {
		return nil, credentialstatus.NewDataErrorf(
			"credential ID %q must end with %q", params.CredentialID, suffix)
	}

	listVC, err := processor.CreateListCredential(params.CredentialID, params.Length, params.StatusPurpose)
	if err != nil {
		return nil, fmt.Errorf("create status list credential: %w", err)
	}

	signedVC, err := m.issuer.Issue(ctx, instance, listVC)
	if err != nil {
		return nil, fmt.Errorf("sign status list credential: %w", err)
	}

	vcBytes, err := signedVC.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal status list credential: %w", err)
	}

	now := time.Now().UTC()

	wrapper := &credentialstatus.SLCWrapper{
		StatusListID:   params.StatusListID,
		IndexAllocator: params.IndexAllocator,
		VCByte:         vcBytes,
		Sequence:       0,
		CreatedAt:      now,
		UpdatedAt:      now,
		VC:             signedVC,
	}

	if err = m.store.Upsert(ctx, wrapper); err != nil {
		return nil, fmt.Errorf("store status list %s: %w", params.StatusListID, err)
	}

	logger.Debugc(ctx, "Created status list",
		logfields.WithStatusListID(params.StatusListID),
		logfields.WithIndexAllocator(params.IndexAllocator),
		logfields.WithSuffix(suffix),
		logfields.WithStatusType(string(params.Type)),
		logfields.WithStatusPurpose(params.StatusPurpose))

	return wrapper, nil
}

// Get returns the SLC record for statusListID. With useCache the record may
// lag the store by up to the cache TTL; without it the read is authoritative.
func (m *Manager) Get(ctx context.Context, statusListID string,
	useCache bool) (*credentialstatus.SLCWrapper, error) {
	if !useCache {
		return m.load(ctx, statusListID)
	}

	wrapperBytes, err := m.cache.GetOrLoad(ctx, statusListID,
		func(ctx context.Context) ([]byte, error) {
			wrapper, loadErr := m.load(ctx, statusListID)
			if loadErr != nil {
				return nil, loadErr
			}

			return json.Marshal(wrapper)
		})
	if err != nil {
		return nil, err
	}

	wrapper := &credentialstatus.SLCWrapper{}
	if err = json.Unmarshal(wrapperBytes, wrapper); err != nil {
		return nil, fmt.Errorf("unmarshal cached status list %s: %w", statusListID, err)
	}

	if err = m.parseVC(wrapper); err != nil {
		return nil, err
	}

	return wrapper, nil
}

// GetFresh returns a non-expired SLC record for statusListID, re-signing the
// list first if its validity window ends within the expiry skew.
func (m *Manager) GetFresh(ctx context.Context, instance *credentialstatus.Instance,
	statusListID string) (*credentialstatus.SLCWrapper, error) {
	wrapper, err := m.Get(ctx, statusListID, true)
	if err != nil {
		return nil, err
	}

	if !m.isExpired(wrapper.VC) {
		return wrapper, nil
	}

	return m.Refresh(ctx, instance, statusListID)
}

// Refresh re-signs the stored SLC with an unchanged bit payload, regardless
// of its remaining validity, and writes it at the next sequence. When a
// concurrent writer advanced the record first, the refresh is discarded and
// the concurrent writer's record is returned; that writer's signature is at
// least as fresh as ours would have been.
func (m *Manager) Refresh(ctx context.Context, instance *credentialstatus.Instance,
	statusListID string) (*credentialstatus.SLCWrapper, error) {
	startTime := time.Now()

	defer func() {
		m.metrics.StatusListRefreshTime(time.Since(startTime))
	}()

	wrapper, err := m.load(ctx, statusListID)
	if err != nil {
		return nil, err
	}

	wrapper.VC.Proofs = nil

	signedVC, err := m.issuer.Issue(ctx, instance, wrapper.VC)
	if err != nil {
		return nil, fmt.Errorf("re-sign status list %s: %w", statusListID, err)
	}

	vcBytes, err := signedVC.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal status list credential: %w", err)
	}

	refreshed := &credentialstatus.SLCWrapper{
		StatusListID:   wrapper.StatusListID,
		IndexAllocator: wrapper.IndexAllocator,
		VCByte:         vcBytes,
		Sequence:       wrapper.Sequence + 1,
		CreatedAt:      wrapper.CreatedAt,
		UpdatedAt:      time.Now().UTC(),
		VC:             signedVC,
	}

	if err = m.Set(ctx, refreshed); err != nil {
		if errors.Is(err, credentialstatus.ErrConflict) {
			logger.Debugc(ctx, "Concurrent write superseded refresh",
				logfields.WithStatusListID(statusListID),
				logfields.WithSequence(refreshed.Sequence))

			if cacheErr := m.cache.Invalidate(ctx, statusListID); cacheErr != nil {
				logger.Warnc(ctx, "Cache invalidation failed", log.WithError(cacheErr),
					logfields.WithStatusListID(statusListID))
			}

			return m.load(ctx, statusListID)
		}

		return nil, err
	}

	logger.Debugc(ctx, "Refreshed status list",
		logfields.WithStatusListID(statusListID),
		logfields.WithSequence(refreshed.Sequence))

	return refreshed, nil
}

// Set writes wrapper at its sequence and invalidates the cached entry so
// readers re-load promptly rather than waiting out the TTL.
func (m *Manager) Set(ctx context.Context, wrapper *credentialstatus.SLCWrapper) error {
	if err := m.store.Upsert(ctx, wrapper); err != nil {
		return err
	}

	if err := m.cache.Invalidate(ctx, wrapper.StatusListID); err != nil {
		logger.Warnc(ctx, "Cache invalidation failed", log.WithError(err),
			logfields.WithStatusListID(wrapper.StatusListID))
	}

	return nil
}

func (m *Manager) load(ctx context.Context, statusListID string) (*credentialstatus.SLCWrapper, error) {
	wrapper, err := m.store.Get(ctx, statusListID)
	if err != nil {
		return nil, fmt.Errorf("get status list %s: %w", statusListID, err)
	}

	if err = m.parseVC(wrapper); err != nil {
		return nil, err
	}

	return wrapper, nil
}

func (m *Manager) parseVC(wrapper *credentialstatus.SLCWrapper) error {
	vc, err := verifiable.ParseCredential(wrapper.VCByte,
		verifiable.WithDisabledProofCheck(),
		verifiable.WithJSONLDDocumentLoader(m.documentLoader))
	if err != nil {
		return fmt.Errorf("parse status list credential %s: %w", wrapper.StatusListID, err)
	}

	wrapper.VC = vc

	return nil
}

func (m *Manager) isExpired(vc *verifiable.Credential) bool {
	if vc.Expired == nil {
		return false
	}

	return !vc.Expired.Time.After(time.Now().Add(m.expirySkew))
}
