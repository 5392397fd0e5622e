/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credentialstatus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go/component/models/verifiable"

	statusapi "github.com/trustbloc/status/pkg/doc/status"
)

// StatusListPathSegment is the path segment status list IDs live under,
// relative to the owning instance's base URL. Aliased credential IDs on any
// host are resolved back to a status list ID through this segment.
const StatusListPathSegment = "/status-lists/"

// Instance describes the status service instance on whose behalf status lists
// are maintained. Instances are configured externally; this subsystem only
// reads them.
type Instance struct {
	// ID is the instance config ID, scoping mappings and cache keys.
	ID string `json:"id"`
	// BaseURL is the public base URL of the instance. Status list IDs live
	// under BaseURL + StatusListPathSegment.
	BaseURL string `json:"baseURL"`
	// MaxListSize bounds the bit length of newly created status lists.
	MaxListSize int `json:"maxListSize"`
}

// SLCWrapper holds a signed status list credential (SLC) together with its
// store metadata. Sequence is the sole concurrency-control token: every
// accepted write advances it by exactly 1.
type SLCWrapper struct {
	// StatusListID is the stable logical ID of the list, immutable once created.
	StatusListID string `json:"statusListId"`
	// IndexAllocator names the allocation authority that owns bit assignment
	// for this list, immutable once created.
	IndexAllocator string `json:"indexAllocator"`
	// VCByte stores the signed SLC.
	VCByte json.RawMessage `json:"vc,omitempty"`
	// Sequence is the monotonically increasing version counter.
	Sequence int `json:"sequence"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// VC represents the parsed SLC.
	VC *verifiable.Credential `json:"-"`
}

// Mapping durably records which bit of which SLC a credential/purpose pair
// owns. A mapping is a permanent first-writer-wins allocation: once created
// for its key it is never changed or deleted by this subsystem.
type Mapping struct {
	ConfigID             string    `json:"configId"`
	CredentialID         string    `json:"credentialId"`
	StatusPurpose        string    `json:"statusPurpose"`
	StatusListCredential string    `json:"statusListCredential"`
	StatusListIndex      string    `json:"statusListIndex"`
	Sequence             int       `json:"sequence"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// CreateStatusListParams holds the caller-supplied parameters of CreateStatusList.
type CreateStatusListParams struct {
	// StatusListID is the logical ID of the new list, under the instance base URL.
	StatusListID string
	// IndexAllocator names the allocation authority for the new list.
	IndexAllocator string
	// CredentialID is the public ID of the list credential. It may be an
	// externally-aliased URL on any host, but its path suffix must equal the
	// suffix of StatusListID relative to the instance base URL.
	CredentialID string
	// Type is the status list type.
	Type statusapi.ListType
	// StatusPurpose is the purpose axis tracked by the list.
	StatusPurpose string
	// Length is the bit length of the list.
	Length int
}

// UpdateStatusParams holds the caller-supplied parameters of UpdateCredentialStatus.
type UpdateStatusParams struct {
	Instance     *Instance
	CredentialID string
	// IndexAllocator is required when the call establishes a new mapping and
	// must match the list's stored allocator otherwise (when supplied).
	IndexAllocator string
	// CredentialStatus is the status entry naming the target list and bit.
	// StatusListCredential and StatusListIndex are required on the first call
	// for a credential/purpose pair and must match the stored mapping on
	// subsequent calls (when supplied).
	CredentialStatus *verifiable.TypedID
	// DesiredStatus is the boolean status value to record.
	DesiredStatus bool
}

// ResolveStatusListID maps an SLC identifier, possibly an aliased credential
// URL on a foreign host, to the status list ID the owning instance keys its
// records by.
func ResolveStatusListID(instance *Instance, statusListCredential string) (string, error) {
	idx := strings.Index(statusListCredential, StatusListPathSegment)
	if idx < 0 {
		return "", fmt.Errorf("no %q segment in status list credential ID %q",
			StatusListPathSegment, statusListCredential)
	}

	return instance.BaseURL + statusListCredential[idx:], nil
}

// ListSuffix returns the suffix of statusListID relative to the instance base URL.
func ListSuffix(instance *Instance, statusListID string) (string, error) {
	suffix := strings.TrimPrefix(statusListID, instance.BaseURL)
	if suffix == statusListID || !strings.HasPrefix(suffix, StatusListPathSegment) {
		return "", fmt.Errorf("status list ID %q is not under instance base URL %q",
			statusListID, instance.BaseURL)
	}

	return suffix, nil
}
