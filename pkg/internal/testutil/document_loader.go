/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testutil

import (
	_ "embed" //nolint:gci // required for go:embed
	"testing"

	ldcontext "github.com/hyperledger/aries-framework-go/component/models/ld/context"
	ld "github.com/hyperledger/aries-framework-go/component/models/ld/documentloader"
	mockldstore "github.com/hyperledger/aries-framework-go/component/models/ld/mock"
	ldstore "github.com/hyperledger/aries-framework-go/component/models/ld/store"
	"github.com/stretchr/testify/require"
)

// nolint:gochecknoglobals // embedded test contexts
var (
	//go:embed contexts/vc-status-list-2021-v1.jsonld
	vcStatusList2021 []byte
	//go:embed contexts/credentials-v2.jsonld
	credentialsV2 []byte
)

type mockLDStoreProvider struct {
	ContextStore        ldstore.ContextStore
	RemoteProviderStore ldstore.RemoteProviderStore
}

func (p *mockLDStoreProvider) JSONLDContextStore() ldstore.ContextStore {
	return p.ContextStore
}

func (p *mockLDStoreProvider) JSONLDRemoteProviderStore() ldstore.RemoteProviderStore {
	return p.RemoteProviderStore
}

// DocumentLoader returns a document loader with preloaded test contexts.
func DocumentLoader(t *testing.T, extraContexts ...ldcontext.Document) *ld.DocumentLoader {
	t.Helper()

	ldStore := &mockLDStoreProvider{
		ContextStore:        mockldstore.NewMockContextStore(),
		RemoteProviderStore: mockldstore.NewMockRemoteProviderStore(),
	}

	testContexts := []ldcontext.Document{
		{
			URL:     "https://w3id.org/vc/status-list/2021/v1",
			Content: vcStatusList2021,
		},
		{
			URL:     "https://www.w3.org/ns/credentials/v2",
			Content: credentialsV2,
		},
	}

	loader, err := ld.NewDocumentLoader(ldStore,
		ld.WithExtraContexts(
			append(testContexts, extraContexts...)...,
		),
	)
	require.NoError(t, err)

	return loader
}
