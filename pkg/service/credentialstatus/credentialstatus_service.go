/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credentialstatus orchestrates credential status updates: it owns
// the credential-to-bit mapping lifecycle and the read-modify-resign-write
// loop against versioned status list credential records.
package credentialstatus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hyperledger/aries-framework-go/component/models/verifiable"
	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/status/internal/logfields"
	statusapi "github.com/trustbloc/status/pkg/doc/status"
	"github.com/trustbloc/status/pkg/doc/status/statustype"
	"github.com/trustbloc/status/pkg/internal/common/occretry"
)

var logger = log.New("credentialstatus-service")

// ServiceInterface defines the status operations exposed to callers.
type ServiceInterface interface {
	CreateStatusList(ctx context.Context, instance *Instance,
		params CreateStatusListParams) (*SLCWrapper, error)
	UpdateCredentialStatus(ctx context.Context, params UpdateStatusParams) error
	GetStatusListVC(ctx context.Context, instance *Instance,
		statusListID string) (*verifiable.Credential, error)
	RefreshStatusListVC(ctx context.Context, instance *Instance,
		statusListID string) (*verifiable.Credential, error)
}

type slcManager interface {
	Create(ctx context.Context, instance *Instance,
		params CreateStatusListParams) (*SLCWrapper, error)
	Get(ctx context.Context, statusListID string, useCache bool) (*SLCWrapper, error)
	GetFresh(ctx context.Context, instance *Instance, statusListID string) (*SLCWrapper, error)
	Refresh(ctx context.Context, instance *Instance, statusListID string) (*SLCWrapper, error)
	Set(ctx context.Context, wrapper *SLCWrapper) error
}

type metricsProvider interface {
	UpdateCredentialStatusTime(value time.Duration)
	StatusUpdateConflict()
}

type noopMetrics struct{}

func (noopMetrics) UpdateCredentialStatusTime(time.Duration) {}
func (noopMetrics) StatusUpdateConflict()                    {}

// Config holds the dependencies of Service.
type Config struct {
	SLCManager   slcManager
	MappingStore MappingStore
	Issuer       Issuer
	Metrics      metricsProvider
	RetryOpts    []occretry.Opt
}

// Service implements ServiceInterface.
type Service struct {
	slcManager   slcManager
	mappingStore MappingStore
	issuer       Issuer
	metrics      metricsProvider
	retryOpts    []occretry.Opt
}

// New creates a Service.
func New(config *Config) (*Service, error) {
	if config.SLCManager == nil {
		return nil, errors.New("slc manager is required")
	}

	if config.MappingStore == nil {
		return nil, errors.New("mapping store is required")
	}

	if config.Issuer == nil {
		return nil, errors.New("issuer is required")
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Service{
		slcManager:   config.SLCManager,
		mappingStore: config.MappingStore,
		issuer:       config.Issuer,
		metrics:      metrics,
		retryOpts:    config.RetryOpts,
	}, nil
}

// CreateStatusList creates a new signed status list credential record.
func (s *Service) CreateStatusList(ctx context.Context, instance *Instance,
	params CreateStatusListParams) (*SLCWrapper, error) {
	return s.slcManager.Create(ctx, instance, params)
}

// GetStatusListVC returns the status list credential for statusListID,
// re-signed first if its validity window is about to end.
func (s *Service) GetStatusListVC(ctx context.Context, instance *Instance,
	statusListID string) (*verifiable.Credential, error) {
	wrapper, err := s.slcManager.GetFresh(ctx, instance, statusListID)
	if err != nil {
		return nil, fmt.Errorf("get status list VC: %w", err)
	}

	return wrapper.VC, nil
}

// RefreshStatusListVC unconditionally re-signs the status list credential for
// statusListID with an unchanged bit payload.
func (s *Service) RefreshStatusListVC(ctx context.Context, instance *Instance,
	statusListID string) (*verifiable.Credential, error) {
	wrapper, err := s.slcManager.Refresh(ctx, instance, statusListID)
	if err != nil {
		return nil, fmt.Errorf("refresh status list VC: %w", err)
	}

	return wrapper.VC, nil
}

// UpdateCredentialStatus records params.DesiredStatus for the credential named
// by params. The first update for a credential/purpose pair permanently binds
// it to a bit of a status list; later updates reuse that binding. Setting a
// bit to its current value is a no-op and issues nothing.
func (s *Service) UpdateCredentialStatus(ctx context.Context, params UpdateStatusParams) error {
	startTime := time.Now()

	defer func() {
		s.metrics.UpdateCredentialStatusTime(time.Since(startTime))
	}()

	if params.Instance == nil {
		return NewDataErrorf("instance is required")
	}

	if params.CredentialID == "" {
		return NewDataErrorf("credential ID is required")
	}

	if params.CredentialStatus == nil {
		return NewDataErrorf("credential status is required")
	}

	purpose := statusStringField(params.CredentialStatus, statustype.StatusPurpose)
	if purpose == "" {
		return NewDataErrorf("%s is required in credential status", statustype.StatusPurpose)
	}

	mapping, err := s.resolveMapping(ctx, params, purpose)
	if err != nil {
		return err
	}

	statusListIndex, err := strconv.Atoi(mapping.StatusListIndex)
	if err != nil {
		return NewDataErrorf("invalid %s %q", statustype.StatusListIndex, mapping.StatusListIndex)
	}

	statusListID, err := ResolveStatusListID(params.Instance, mapping.StatusListCredential)
	if err != nil {
		return NewDataError(err)
	}

	logger.Debugc(ctx, "Updating credential status",
		logfields.WithConfigID(params.Instance.ID),
		logfields.WithCredentialID(params.CredentialID),
		logfields.WithStatusListID(statusListID),
		logfields.WithStatusListIndex(mapping.StatusListIndex),
		logfields.WithStatusPurpose(purpose),
		logfields.WithUpdateParams(params))

	return occretry.Do(ctx, func(ctx context.Context) error {
		return s.updateStatusListBit(ctx, params, statusListID, statusListIndex)
	}, s.isConflict, s.retryOpts...)
}

// resolveMapping returns the durable mapping for the credential/purpose pair,
// creating it from the caller-supplied status entry when none exists yet. The
// target list is validated before the allocation is persisted so a mapping is
// never bound to an unknown or mismatched list. A concurrent creator winning
// the race is not an error; the stored mapping is authoritative either way.
func (s *Service) resolveMapping(ctx context.Context, params UpdateStatusParams,
	purpose string) (*Mapping, error) {
	mapping, err := s.mappingStore.Get(ctx, params.Instance.ID, params.CredentialID, purpose)
	if err == nil {
		return mapping, s.validateMappingMatch(params.CredentialStatus, mapping)
	}

	if !errors.Is(err, ErrDataNotFound) {
		return nil, fmt.Errorf("get status mapping: %w", err)
	}

	statusListCredential := statusStringField(params.CredentialStatus, statustype.StatusListCredential)
	statusListIndex := statusStringField(params.CredentialStatus, statustype.StatusListIndex)

	if statusListCredential == "" || statusListIndex == "" {
		return nil, NewDataErrorf("%s and %s are required to allocate a status position",
			statustype.StatusListCredential, statustype.StatusListIndex)
	}

	if params.IndexAllocator == "" {
		return nil, NewDataErrorf("index allocator is required to allocate a status position")
	}

	statusListID, err := ResolveStatusListID(params.Instance, statusListCredential)
	if err != nil {
		return nil, NewDataError(err)
	}

	wrapper, err := s.slcManager.Get(ctx, statusListID, false)
	if err != nil {
		return nil, fmt.Errorf("get status list %s: %w", statusListID, err)
	}

	if _, err = s.checkStatusListMatch(params, wrapper); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	mapping = &Mapping{
		ConfigID:             params.Instance.ID,
		CredentialID:         params.CredentialID,
		StatusPurpose:        purpose,
		StatusListCredential: statusListCredential,
		StatusListIndex:      statusListIndex,
		Sequence:             0,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = s.mappingStore.Create(ctx, mapping)
	if err == nil {
		logger.Debugc(ctx, "Allocated status position",
			logfields.WithConfigID(params.Instance.ID),
			logfields.WithCredentialID(params.CredentialID),
			logfields.WithStatusListIndex(statusListIndex),
			logfields.WithStatusPurpose(purpose))

		return mapping, nil
	}

	if !errors.Is(err, ErrConflict) {
		return nil, fmt.Errorf("create status mapping: %w", err)
	}

	mapping, err = s.mappingStore.Get(ctx, params.Instance.ID, params.CredentialID, purpose)
	if err != nil {
		return nil, fmt.Errorf("get status mapping after create conflict: %w", err)
	}

	return mapping, nil
}

func (s *Service) validateMappingMatch(entry *verifiable.TypedID, mapping *Mapping) error {
	if v := statusStringField(entry, statustype.StatusListCredential); v != "" &&
		v != mapping.StatusListCredential {
		return NewDataErrorf("%s %q does not match allocated %q",
			statustype.StatusListCredential, v, mapping.StatusListCredential)
	}

	if v := statusStringField(entry, statustype.StatusListIndex); v != "" &&
		v != mapping.StatusListIndex {
		return NewDataErrorf("%s %q does not match allocated %q",
			statustype.StatusListIndex, v, mapping.StatusListIndex)
	}

	return nil
}

// checkStatusListMatch validates the caller-supplied allocator and entry type
// against the authoritative list record, returning the record's processor.
func (s *Service) checkStatusListMatch(params UpdateStatusParams,
	wrapper *SLCWrapper) (statusapi.Processor, error) {
	if params.IndexAllocator != "" && params.IndexAllocator != wrapper.IndexAllocator {
		return nil, NewDataErrorf("index allocator %q does not match status list allocator %q",
			params.IndexAllocator, wrapper.IndexAllocator)
	}

	listType, err := statustype.ListTypeOf(wrapper.VC)
	if err != nil {
		return nil, NewDataError(err)
	}

	processor, err := statustype.GetProcessor(listType)
	if err != nil {
		return nil, &NotSupportedError{ListType: string(listType)}
	}

	if params.CredentialStatus.Type != processor.EntryType() {
		return nil, NewDataErrorf("credential status type %q does not match status list entry type %q",
			params.CredentialStatus.Type, processor.EntryType())
	}

	return processor, nil
}

// updateStatusListBit is one optimistic-concurrency attempt: read the record
// authoritatively, validate, flip the bit, re-sign and write at the next
// sequence. An ErrConflict return means the attempt is safe to repeat.
func (s *Service) updateStatusListBit(ctx context.Context, params UpdateStatusParams,
	statusListID string, statusListIndex int) error {
	wrapper, err := s.slcManager.Get(ctx, statusListID, false)
	if err != nil {
		return fmt.Errorf("get status list %s: %w", statusListID, err)
	}

	processor, err := s.checkStatusListMatch(params, wrapper)
	if err != nil {
		return err
	}

	bits, err := processor.DecodeList(wrapper.VC)
	if err != nil {
		return fmt.Errorf("decode status list %s: %w", statusListID, err)
	}

	currentValue, err := bits.Get(statusListIndex)
	if err != nil {
		return NewDataError(err)
	}

	if currentValue == params.DesiredStatus {
		logger.Debugc(ctx, "Credential status already at desired value",
			logfields.WithCredentialID(params.CredentialID),
			logfields.WithStatusListID(statusListID))

		return nil
	}

	if err = bits.Set(statusListIndex, params.DesiredStatus); err != nil {
		return NewDataError(err)
	}

	wrapper.VC.Proofs = nil

	if err = processor.UpdateList(wrapper.VC, bits); err != nil {
		return fmt.Errorf("update status list %s: %w", statusListID, err)
	}

	signedVC, err := s.issuer.Issue(ctx, params.Instance, wrapper.VC)
	if err != nil {
		return fmt.Errorf("sign status list %s: %w", statusListID, err)
	}

	vcBytes, err := signedVC.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal status list credential: %w", err)
	}

	updated := &SLCWrapper{
		StatusListID:   wrapper.StatusListID,
		IndexAllocator: wrapper.IndexAllocator,
		VCByte:         vcBytes,
		Sequence:       wrapper.Sequence + 1,
		CreatedAt:      wrapper.CreatedAt,
		UpdatedAt:      time.Now().UTC(),
		VC:             signedVC,
	}

	return s.slcManager.Set(ctx, updated)
}

func (s *Service) isConflict(err error) bool {
	if errors.Is(err, ErrConflict) {
		s.metrics.StatusUpdateConflict()

		return true
	}

	return false
}

func statusStringField(entry *verifiable.TypedID, key string) string {
	if entry.CustomFields == nil {
		return ""
	}

	value, _ := entry.CustomFields[key].(string)

	return value
}
