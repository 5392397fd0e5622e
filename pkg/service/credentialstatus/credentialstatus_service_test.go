/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credentialstatus_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	utiltime "github.com/hyperledger/aries-framework-go/component/models/util/time"
	"github.com/hyperledger/aries-framework-go/component/models/verifiable"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/status/pkg/cache"
	statusapi "github.com/trustbloc/status/pkg/doc/status"
	"github.com/trustbloc/status/pkg/doc/status/statustype"
	"github.com/trustbloc/status/pkg/internal/testutil"
	"github.com/trustbloc/status/pkg/service/credentialstatus"
	"github.com/trustbloc/status/pkg/slcmanager"
)

const (
	testBaseURL   = "https://issuer.example.com"
	testAllocator = "allocator-1"
	testListSize  = 131072
)

func TestNew(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success", func(t *testing.T) {
		svc, err := credentialstatus.New(&credentialstatus.Config{
			SLCManager:   env.manager,
			MappingStore: env.mappings,
			Issuer:       env.issuer,
		})
		require.NoError(t, err)
		require.NotNil(t, svc)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := credentialstatus.New(&credentialstatus.Config{})
		require.ErrorContains(t, err, "slc manager is required")

		_, err = credentialstatus.New(&credentialstatus.Config{SLCManager: env.manager})
		require.ErrorContains(t, err, "mapping store is required")

		_, err = credentialstatus.New(&credentialstatus.Config{
			SLCManager: env.manager, MappingStore: env.mappings,
		})
		require.ErrorContains(t, err, "issuer is required")
	})
}

func TestService_UpdateCredentialStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("first update allocates a mapping and sets the bit", func(t *testing.T) {
		env := newTestEnv(t)
		instance := newTestInstance()

		statusListID := env.createList(t, instance, statusapi.BitstringStatusList)

		credentialID := "https://example.com/credentials/" + uuid.NewString()
		entry := newEntry(statusapi.BitstringStatusList, statusListID, "100000")

		issuedBefore := env.issuer.issued

		require.NoError(t, env.svc.UpdateCredentialStatus(ctx, credentialstatus.UpdateStatusParams{
			Instance:         instance,
			CredentialID:     credentialID,
			IndexAllocator:   testAllocator,
			CredentialStatus: entry,
			DesiredStatus:    true,
		}))

		require.Equal(t, issuedBefore+1, env.issuer.issued)

		mapping, err := env.mappings.Get(ctx, instance.ID, credentialID, "revocation")
		require.NoError(t, err)
		require.Equal(t, statusListID, mapping.StatusListCredential)
		require.Equal(t, "100000", mapping.StatusListIndex)

		require.True(t, env.bitValue(t, instance, statusListID, 100000))
	})

	t.Run("later updates reuse the stored mapping", func(t *testing.T) {
		env := newTestEnv(t)
		instance := newTestInstance()

		statusListID := env.createList(t, instance, statusapi.StatusList2021)

		credentialID := "https://example.com/credentials/" + uuid.NewString()

		require.NoError(t, env.svc.UpdateCredentialStatus(ctx, credentialstatus.UpdateStatusParams{
			Instance:         instance,
			CredentialID:     credentialID,
			IndexAllocator:   testAllocator,
			CredentialStatus: newEntry(statusapi.StatusList2021, statusListID, "42"),
			DesiredStatus:    true,
		}))

		// The second call names neither the list nor the index.
		bareEntry := &verifiable.TypedID{
			Type: "StatusList2021Entry",
			CustomFields: verifiable.CustomFields{
				statustype.StatusPurpose: "revocation",
			},
		}

		require.NoError(t, env.svc.UpdateCredentialStatus(ctx, credentialstatus.UpdateStatusParams{
			Instance:         instance,
			CredentialID:     credentialID,
			CredentialStatus: bareEntry,
			DesiredStatus:    false,
		}))

		require.False(t, env.bitValue(t, instance, statusListID, 42))
	})

	t.Run("setting the current value is a no-op", func(t *testing.T) {
		env := newTestEnv(t)
		instance := newTestInstance()

		statusListID := env.createList(t, instance, statusapi.StatusList2021)

		params := credentialstatus.UpdateStatusParams{
			Instance:         instance,
			CredentialID:     "https://example.com/credentials/" + uuid.NewString(),
			IndexAllocator:   testAllocator,
			CredentialStatus: newEntry(statusapi.StatusList2021, statusListID, "7"),
			DesiredStatus:    true,
		}

		require.NoError(t, env.svc.UpdateCredentialStatus(ctx, params))

		issuedAfterFirst := env.issuer.issued
		seqAfterFirst := env.slcs.seqs[statusListID]

		require.NoError(t, env.svc.UpdateCredentialStatus(ctx, params))

		require.Equal(t, issuedAfterFirst, env.issuer.issued)
		require.Equal(t, seqAfterFirst, env.slcs.seqs[statusListID])
	})

	t.Run("first writer wins a concurrent mapping race", func(t *testing.T) {
		env := newTestEnv(t)
		instance := newTestInstance()

		statusListID := env.createList(t, instance, statusapi.StatusList2021)

		credentialID := "https://example.com/credentials/" + uuid.NewString()

		// A concurrent caller allocates index 10 just before our insert lands.
		env.mappings.onCreate = func() {
			env.mappings.onCreate = nil

			winner := newTestMapping(instance.ID, credentialID, statusListID, "10")
			require.NoError(t, env.mappings.insert(winner))
		}

		require.NoError(t, env.svc.UpdateCredentialStatus(ctx, credentialstatus.UpdateStatusParams{
			Instance:         instance,
			CredentialID:     credentialID,
			IndexAllocator:   testAllocator,
			CredentialStatus: newEntry(statusapi.StatusList2021, statusListID, "11"),
			DesiredStatus:    true,
		}))

		// The loser's bit-set landed on the winner's index.
		require.True(t, env.bitValue(t, instance, statusListID, 10))
		require.False(t, env.bitValue(t, instance, statusListID, 11))

		mapping, err := env.mappings.Get(ctx, instance.ID, credentialID, "revocation")
		require.NoError(t, err)
		require.Equal(t, "10", mapping.StatusListIndex)
	})

	t.Run("retries a sequence conflict and preserves the concurrent write", func(t *testing.T) {
		env := newTestEnv(t)
		instance := newTestInstance()

		statusListID := env.createList(t, instance, statusapi.StatusList2021)

		// Another writer sets bit 5 between our read and our write.
		env.slcs.onUpsert = func() {
			env.slcs.onUpsert = nil
			env.concurrentBitSet(t, instance, statusListID, 5)
		}

		require.NoError(t, env.svc.UpdateCredentialStatus(ctx, credentialstatus.UpdateStatusParams{
			Instance:         instance,
			CredentialID:     "https://example.com/credentials/" + uuid.NewString(),
			IndexAllocator:   testAllocator,
			CredentialStatus: newEntry(statusapi.StatusList2021, statusListID, "6"),
			DesiredStatus:    true,
		}))

		require.True(t, env.bitValue(t, instance, statusListID, 5))
		require.True(t, env.bitValue(t, instance, statusListID, 6))
		require.Equal(t, 2, env.slcs.seqs[statusListID])
		require.Equal(t, 1, env.metrics.conflicts)
	})

	t.Run("aliased credential URL resolves to the instance record", func(t *testing.T) {
		env := newTestEnv(t)
		instance := newTestInstance()

		suffix := "/status-lists/" + uuid.NewString()
		aliasURL := "https://alias.example.com" + suffix

		_, err := env.svc.CreateStatusList(ctx, instance, credentialstatus.CreateStatusListParams{
			StatusListID:   instance.BaseURL + suffix,
			IndexAllocator: testAllocator,
			CredentialID:   aliasURL,
			Type:           statusapi.StatusList2021,
			StatusPurpose:  statustype.StatusPurposeRevocation,
			Length:         testListSize,
		})
		require.NoError(t, err)

		require.NoError(t, env.svc.UpdateCredentialStatus(ctx, credentialstatus.UpdateStatusParams{
			Instance:         instance,
			CredentialID:     "https://example.com/credentials/" + uuid.NewString(),
			IndexAllocator:   testAllocator,
			CredentialStatus: newEntry(statusapi.StatusList2021, aliasURL, "3"),
			DesiredStatus:    true,
		}))

		require.True(t, env.bitValue(t, instance, instance.BaseURL+suffix, 3))
	})

	t.Run("data errors", func(t *testing.T) {
		env := newTestEnv(t)
		instance := newTestInstance()

		statusListID := env.createList(t, instance, statusapi.StatusList2021)

		credentialID := "https://example.com/credentials/" + uuid.NewString()

		require.NoError(t, env.svc.UpdateCredentialStatus(ctx, credentialstatus.UpdateStatusParams{
			Instance:         instance,
			CredentialID:     credentialID,
			IndexAllocator:   testAllocator,
			CredentialStatus: newEntry(statusapi.StatusList2021, statusListID, "9"),
			DesiredStatus:    true,
		}))

		tests := []struct {
			name     string
			params   credentialstatus.UpdateStatusParams
			contains string
		}{
			{
				name:     "missing instance",
				params:   credentialstatus.UpdateStatusParams{CredentialID: credentialID},
				contains: "instance is required",
			},
			{
				name: "missing credential ID",
				params: credentialstatus.UpdateStatusParams{
					Instance:         instance,
					CredentialStatus: newEntry(statusapi.StatusList2021, statusListID, "9"),
				},
				contains: "credential ID is required",
			},
			{
				name: "missing credential status",
				params: credentialstatus.UpdateStatusParams{
					Instance:     instance,
					CredentialID: credentialID,
				},
				contains: "credential status is required",
			},
			{
				name: "missing status purpose",
				params: credentialstatus.UpdateStatusParams{
					Instance:     instance,
					CredentialID: credentialID,
					CredentialStatus: &verifiable.TypedID{
						Type: "StatusList2021Entry",
						CustomFields: verifiable.CustomFields{
							statustype.StatusListCredential: statusListID,
							statustype.StatusListIndex:      "9",
						},
					},
				},
				contains: "statusPurpose is required",
			},
			{
				name: "mismatched index against stored mapping",
				params: credentialstatus.UpdateStatusParams{
					Instance:         instance,
					CredentialID:     credentialID,
					CredentialStatus: newEntry(statusapi.StatusList2021, statusListID, "10"),
					DesiredStatus:    true,
				},
				contains: "does not match allocated",
			},
			{
				name: "missing entry location on first update",
				params: credentialstatus.UpdateStatusParams{
					Instance:     instance,
					CredentialID: "https://example.com/credentials/" + uuid.NewString(),
					CredentialStatus: &verifiable.TypedID{
						Type: "StatusList2021Entry",
						CustomFields: verifiable.CustomFields{
							statustype.StatusPurpose: "revocation",
						},
					},
				},
				contains: "required to allocate",
			},
			{
				name: "missing allocator on first update",
				params: credentialstatus.UpdateStatusParams{
					Instance:         instance,
					CredentialID:     "https://example.com/credentials/" + uuid.NewString(),
					CredentialStatus: newEntry(statusapi.StatusList2021, statusListID, "12"),
					DesiredStatus:    true,
				},
				contains: "index allocator is required",
			},
			{
				name: "allocator mismatch",
				params: credentialstatus.UpdateStatusParams{
					Instance:         instance,
					CredentialID:     credentialID,
					IndexAllocator:   "allocator-2",
					CredentialStatus: newEntry(statusapi.StatusList2021, statusListID, "9"),
					DesiredStatus:    false,
				},
				contains: "does not match status list allocator",
			},
			{
				name: "entry type mismatch",
				params: credentialstatus.UpdateStatusParams{
					Instance:         instance,
					CredentialID:     credentialID,
					CredentialStatus: newEntry(statusapi.BitstringStatusList, statusListID, "9"),
					DesiredStatus:    false,
				},
				contains: "does not match status list entry type",
			},
			{
				name: "non-numeric index",
				params: credentialstatus.UpdateStatusParams{
					Instance:         instance,
					CredentialID:     "https://example.com/credentials/" + uuid.NewString(),
					IndexAllocator:   testAllocator,
					CredentialStatus: newEntry(statusapi.StatusList2021, statusListID, "abc"),
					DesiredStatus:    true,
				},
				contains: "invalid statusListIndex",
			},
			{
				name: "index out of range",
				params: credentialstatus.UpdateStatusParams{
					Instance:         instance,
					CredentialID:     "https://example.com/credentials/" + uuid.NewString(),
					IndexAllocator:   testAllocator,
					CredentialStatus: newEntry(statusapi.StatusList2021, statusListID, "999999999"),
					DesiredStatus:    true,
				},
				contains: "position is invalid",
			},
			{
				name: "status list credential without list path segment",
				params: credentialstatus.UpdateStatusParams{
					Instance:       instance,
					CredentialID:   "https://example.com/credentials/" + uuid.NewString(),
					IndexAllocator: testAllocator,
					CredentialStatus: newEntry(statusapi.StatusList2021,
						"https://issuer.example.com/other/1", "1"),
					DesiredStatus: true,
				},
				contains: "no \"/status-lists/\" segment",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := env.svc.UpdateCredentialStatus(ctx, tt.params)
				require.True(t, credentialstatus.IsDataError(err), "expected DataError, got %v", err)
				require.ErrorContains(t, err, tt.contains)
			})
		}
	})

	t.Run("unknown status list allocates nothing", func(t *testing.T) {
		env := newTestEnv(t)
		instance := newTestInstance()

		credentialID := "https://example.com/credentials/" + uuid.NewString()

		err := env.svc.UpdateCredentialStatus(ctx, credentialstatus.UpdateStatusParams{
			Instance:       instance,
			CredentialID:   credentialID,
			IndexAllocator: testAllocator,
			CredentialStatus: newEntry(statusapi.StatusList2021,
				testBaseURL+"/status-lists/"+uuid.NewString(), "1"),
			DesiredStatus: true,
		})
		require.ErrorIs(t, err, credentialstatus.ErrDataNotFound)

		_, err = env.mappings.Get(ctx, instance.ID, credentialID, "revocation")
		require.ErrorIs(t, err, credentialstatus.ErrDataNotFound)
	})
}

func TestService_GetStatusListVC(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		instance := newTestInstance()

		statusListID := env.createList(t, instance, statusapi.BitstringStatusList)

		vc, err := env.svc.GetStatusListVC(ctx, instance, statusListID)
		require.NoError(t, err)
		require.Equal(t, statusListID, vc.ID)
	})

	t.Run("unknown list", func(t *testing.T) {
		env := newTestEnv(t)
		instance := newTestInstance()

		_, err := env.svc.GetStatusListVC(ctx, instance,
			testBaseURL+"/status-lists/"+uuid.NewString())
		require.ErrorIs(t, err, credentialstatus.ErrDataNotFound)
	})

	t.Run("expired list is served re-signed", func(t *testing.T) {
		env := newTestEnv(t)
		instance := newTestInstance()

		env.issuer.expiry = -time.Minute

		statusListID := env.createList(t, instance, statusapi.StatusList2021)

		env.issuer.expiry = time.Hour

		vc, err := env.svc.GetStatusListVC(ctx, instance, statusListID)
		require.NoError(t, err)
		require.True(t, vc.Expired.Time.After(time.Now()))
		require.Equal(t, 1, env.slcs.seqs[statusListID])
	})
}

func TestService_RefreshStatusListVC(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t)
	instance := newTestInstance()

	env.issuer.expiry = -time.Minute

	statusListID := env.createList(t, instance, statusapi.StatusList2021)

	env.issuer.expiry = time.Hour

	vc, err := env.svc.RefreshStatusListVC(ctx, instance, statusListID)
	require.NoError(t, err)
	require.True(t, vc.Expired.Time.After(time.Now()))
	require.Equal(t, 1, env.slcs.seqs[statusListID])
}

type testEnv struct {
	svc      *credentialstatus.Service
	manager  *slcmanager.Manager
	slcs     *mockSLCStore
	mappings *mockMappingStore
	issuer   *mockIssuer
	metrics  *mockMetrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		slcs:     newMockSLCStore(),
		mappings: newMockMappingStore(),
		issuer:   &mockIssuer{expiry: time.Hour},
		metrics:  &mockMetrics{},
	}

	cacheStore, err := cache.NewRistrettoStore(100)
	require.NoError(t, err)

	t.Cleanup(cacheStore.Close)

	env.manager, err = slcmanager.New(&slcmanager.Config{
		SLCStore:       env.slcs,
		Cache:          cache.New(cacheStore, cache.WithTTL(time.Minute)),
		Issuer:         env.issuer,
		DocumentLoader: testutil.DocumentLoader(t),
	})
	require.NoError(t, err)

	env.svc, err = credentialstatus.New(&credentialstatus.Config{
		SLCManager:   env.manager,
		MappingStore: env.mappings,
		Issuer:       env.issuer,
		Metrics:      env.metrics,
	})
	require.NoError(t, err)

	return env
}

func (env *testEnv) createList(t *testing.T, instance *credentialstatus.Instance,
	listType statusapi.ListType) string {
	t.Helper()

	statusListID := fmt.Sprintf("%s/status-lists/%s", instance.BaseURL, uuid.NewString())

	_, err := env.svc.CreateStatusList(context.Background(), instance,
		credentialstatus.CreateStatusListParams{
			StatusListID:   statusListID,
			IndexAllocator: testAllocator,
			CredentialID:   statusListID,
			Type:           listType,
			StatusPurpose:  statustype.StatusPurposeRevocation,
			Length:         testListSize,
		})
	require.NoError(t, err)

	return statusListID
}

func (env *testEnv) bitValue(t *testing.T, instance *credentialstatus.Instance,
	statusListID string, index int) bool {
	t.Helper()

	wrapper, err := env.manager.Get(context.Background(), statusListID, false)
	require.NoError(t, err)

	listType, err := statustype.ListTypeOf(wrapper.VC)
	require.NoError(t, err)

	processor, err := statustype.GetProcessor(listType)
	require.NoError(t, err)

	bits, err := processor.DecodeList(wrapper.VC)
	require.NoError(t, err)

	value, err := bits.Get(index)
	require.NoError(t, err)

	return value
}

// concurrentBitSet emulates another writer advancing the record by one
// sequence with the given bit set.
func (env *testEnv) concurrentBitSet(t *testing.T, instance *credentialstatus.Instance,
	statusListID string, index int) {
	t.Helper()

	wrapper, err := env.manager.Get(context.Background(), statusListID, false)
	require.NoError(t, err)

	listType, err := statustype.ListTypeOf(wrapper.VC)
	require.NoError(t, err)

	processor, err := statustype.GetProcessor(listType)
	require.NoError(t, err)

	bits, err := processor.DecodeList(wrapper.VC)
	require.NoError(t, err)
	require.NoError(t, bits.Set(index, true))
	require.NoError(t, processor.UpdateList(wrapper.VC, bits))

	vcBytes, err := wrapper.VC.MarshalJSON()
	require.NoError(t, err)

	wrapper.VCByte = vcBytes
	wrapper.Sequence++

	require.NoError(t, env.slcs.apply(wrapper))
}

func newTestInstance() *credentialstatus.Instance {
	return &credentialstatus.Instance{
		ID:          "config-1",
		BaseURL:     testBaseURL,
		MaxListSize: testListSize,
	}
}

func newEntry(listType statusapi.ListType, statusListCredential, index string) *verifiable.TypedID {
	processor, err := statustype.GetProcessor(listType)
	if err != nil {
		panic(err)
	}

	return processor.CreateStatusEntry(index, statusListCredential, statustype.StatusPurposeRevocation)
}

func newTestMapping(configID, credentialID, statusListCredential,
	statusListIndex string) *credentialstatus.Mapping {
	now := time.Now().UTC()

	return &credentialstatus.Mapping{
		ConfigID:             configID,
		CredentialID:         credentialID,
		StatusPurpose:        "revocation",
		StatusListCredential: statusListCredential,
		StatusListIndex:      statusListIndex,
		Sequence:             0,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

type mockIssuer struct {
	expiry time.Duration
	issued int
}

func (m *mockIssuer) Issue(_ context.Context, instance *credentialstatus.Instance,
	vc *verifiable.Credential) (*verifiable.Credential, error) {
	m.issued++

	now := time.Now().UTC()

	vc.Issuer = verifiable.Issuer{ID: "did:example:" + instance.ID}
	vc.Issued = utiltime.NewTime(now)
	vc.Expired = utiltime.NewTime(now.Add(m.expiry))

	return vc, nil
}

type mockMetrics struct {
	conflicts int
}

func (m *mockMetrics) UpdateCredentialStatusTime(time.Duration) {}

func (m *mockMetrics) StatusUpdateConflict() {
	m.conflicts++
}

// mockSLCStore is an in-memory SLCStore with the same compare-and-set
// contract as the mongodb implementation.
type mockSLCStore struct {
	mu       sync.Mutex
	docs     map[string][]byte
	seqs     map[string]int
	onUpsert func()
}

func newMockSLCStore() *mockSLCStore {
	return &mockSLCStore{
		docs: map[string][]byte{},
		seqs: map[string]int{},
	}
}

func (m *mockSLCStore) Upsert(_ context.Context, wrapper *credentialstatus.SLCWrapper) error {
	if m.onUpsert != nil {
		m.onUpsert()
	}

	return m.apply(wrapper)
}

func (m *mockSLCStore) apply(wrapper *credentialstatus.SLCWrapper) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seq, exists := m.seqs[wrapper.StatusListID]

	if wrapper.Sequence == 0 {
		if exists {
			return credentialstatus.ErrConflict
		}
	} else if !exists || seq != wrapper.Sequence-1 {
		return credentialstatus.ErrConflict
	}

	docBytes, err := json.Marshal(wrapper)
	if err != nil {
		return err
	}

	m.docs[wrapper.StatusListID] = docBytes
	m.seqs[wrapper.StatusListID] = wrapper.Sequence

	return nil
}

func (m *mockSLCStore) Get(_ context.Context, statusListID string) (*credentialstatus.SLCWrapper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docBytes, ok := m.docs[statusListID]
	if !ok {
		return nil, credentialstatus.ErrDataNotFound
	}

	wrapper := &credentialstatus.SLCWrapper{}
	if err := json.Unmarshal(docBytes, wrapper); err != nil {
		return nil, err
	}

	return wrapper, nil
}

// mockMappingStore is an in-memory first-writer-wins MappingStore.
type mockMappingStore struct {
	mu       sync.Mutex
	mappings map[string]*credentialstatus.Mapping
	onCreate func()
}

func newMockMappingStore() *mockMappingStore {
	return &mockMappingStore{mappings: map[string]*credentialstatus.Mapping{}}
}

func mappingKey(configID, credentialID, statusPurpose string) string {
	return configID + "|" + credentialID + "|" + statusPurpose
}

func (m *mockMappingStore) Create(_ context.Context, mapping *credentialstatus.Mapping) error {
	if m.onCreate != nil {
		m.onCreate()
	}

	return m.insert(mapping)
}

func (m *mockMappingStore) insert(mapping *credentialstatus.Mapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := mappingKey(mapping.ConfigID, mapping.CredentialID, mapping.StatusPurpose)

	if _, exists := m.mappings[key]; exists {
		return credentialstatus.ErrConflict
	}

	clone := *mapping
	m.mappings[key] = &clone

	return nil
}

func (m *mockMappingStore) Get(_ context.Context, configID, credentialID,
	statusPurpose string) (*credentialstatus.Mapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mapping, ok := m.mappings[mappingKey(configID, credentialID, statusPurpose)]
	if !ok {
		return nil, credentialstatus.ErrDataNotFound
	}

	clone := *mapping

	return &clone, nil
}
