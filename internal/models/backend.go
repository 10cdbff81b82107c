// Package models defines the data structures exchanged with the management API.
package models

import (
	"encoding/json"
)

// Backend is a candidate storage backend as tracked by the wizard.
//
// A Backend is created empty the first time its GUID shows up in a discovery
// response and is filled in place by Fill once the detail call settles. The
// GUID is assigned by the platform and never mutated locally; backends are
// never removed individually - the whole list is replaced on re-discovery.
type Backend struct {
	GUID     string
	Name     string
	Loaded   bool
	Loading  bool
	Presets  []Preset
	Metadata map[string]json.RawMessage
}

// NewBackend creates an empty, not-yet-loaded backend for a GUID.
func NewBackend(guid string) *Backend {
	return &Backend{GUID: guid}
}

// Fill populates the backend from a detail response and marks it loaded.
func (b *Backend) Fill(detail *BackendDetail) {
	b.Name = detail.Name
	b.Presets = detail.Presets
	b.Metadata = detail.MetadataInformation
	b.Loading = false
	b.Loaded = true
}

// BackendListEntry is one element of the "list backends" response.
type BackendListEntry struct {
	Available  bool   `json:"available"`
	LinkedGUID string `json:"linked_guid"`
	Name       string `json:"name"`
}

// BackendList is the envelope of the "list backends" response.
type BackendList struct {
	Data []BackendListEntry `json:"data"`
}

// BackendDetail is the response of the per-backend detail call.
//
// ASDStatistics maps capacity-unit (ASD) identifiers to their raw statistics
// blobs. The wizard only cares whether the mapping is non-empty: a backend
// without a single capacity unit has no usable storage attached and is not
// eligible for selection.
type BackendDetail struct {
	Available           bool                       `json:"available"`
	GUID                string                     `json:"guid"`
	Name                string                     `json:"name"`
	ASDStatistics       map[string]json.RawMessage `json:"asd_statistics"`
	Presets             []Preset                   `json:"presets"`
	MetadataInformation map[string]json.RawMessage `json:"metadata_information"`
}
