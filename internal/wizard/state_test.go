package wizard

import (
	"encoding/json"
	"testing"

	"github.com/openvstorage/vpool-wizard/internal/config"
	"github.com/openvstorage/vpool-wizard/internal/models"
)

func detailFixture(guid, name string, presets ...models.Preset) *models.BackendDetail {
	return &models.BackendDetail{
		Available:     true,
		GUID:          guid,
		Name:          name,
		ASDStatistics: map[string]json.RawMessage{"asd-1": json.RawMessage(`{}`)},
		Presets:       presets,
	}
}

func presetFixture(name string, available bool) models.Preset {
	return models.Preset{
		Name:     name,
		Policies: []string{"(1, 1, 1, 2)"},
		PolicyMetadata: map[string]models.PolicyStatus{
			"(1, 1, 1, 2)": {IsAvailable: available},
		},
	}
}

func seedScope(t *testing.T, s *State, scope Scope, details ...*models.BackendDetail) {
	t.Helper()
	s.mu.Lock()
	s.applyDiscoveryLocked(scope, details)
	s.mu.Unlock()
}

func TestConnectionFieldChangeResetsScope(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(s *State)
	}{
		{"host", func(s *State) { s.SetHost(ScopeAccelerated, "10.1.1.1") }},
		{"port", func(s *State) { s.SetPort(ScopeAccelerated, 8443) }},
		{"client_id", func(s *State) { s.SetClientID(ScopeAccelerated, "other") }},
		{"client_secret", func(s *State) { s.SetClientSecret(ScopeAccelerated, "other") }},
		{"use_local", func(s *State) { s.SetUseLocal(ScopeAccelerated, false) }},
	}

	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			s := NewState(nil)
			seedScope(t, s, ScopeAccelerated,
				detailFixture("guid-a", "alpha", presetFixture("default", true)))

			if s.ChosenBackend(ScopeAccelerated) == nil {
				t.Fatal("seeding failed, no chosen backend")
			}

			tc.mutate(s)

			if got := s.Backends(ScopeAccelerated); len(got) != 0 {
				t.Errorf("backends after %s change = %d entries, want 0", tc.name, len(got))
			}
			if s.ChosenBackend(ScopeAccelerated) != nil {
				t.Errorf("chosen backend survived %s change", tc.name)
			}
			if s.ChosenPreset(ScopeAccelerated) != nil {
				t.Errorf("chosen preset survived %s change", tc.name)
			}
			if s.PresetAvailable(ScopeAccelerated, "guid-a", "default") {
				t.Errorf("preset availability survived %s change", tc.name)
			}
		})
	}
}

func TestConnectionChangeLeavesOtherScopeAlone(t *testing.T) {
	s := NewState(nil)
	seedScope(t, s, ScopePrimary,
		detailFixture("guid-a", "alpha", presetFixture("default", true)))

	s.SetHost(ScopeAccelerated, "10.1.1.1")

	if s.ChosenBackend(ScopePrimary) == nil {
		t.Error("primary selection lost after accelerated connection change")
	}
}

func TestUnchangedFieldDoesNotReset(t *testing.T) {
	s := NewState(nil)
	s.SetHost(ScopeAccelerated, "10.1.1.1")
	seedScope(t, s, ScopeAccelerated,
		detailFixture("guid-a", "alpha", presetFixture("default", true)))

	s.SetHost(ScopeAccelerated, "10.1.1.1")

	if s.ChosenBackend(ScopeAccelerated) == nil {
		t.Error("setting an identical host value must not reset the scope")
	}
}

func TestSetUseLocalClearsConnectionFields(t *testing.T) {
	s := NewState(nil)
	s.SetUseLocal(ScopeAccelerated, false)
	s.SetHost(ScopeAccelerated, "10.1.1.1")
	s.SetPort(ScopeAccelerated, 8443)
	s.SetClientID(ScopeAccelerated, "user")
	s.SetClientSecret(ScopeAccelerated, "secret")

	s.SetUseLocal(ScopeAccelerated, true)

	conn := s.Connection(ScopeAccelerated)
	if conn.Host != "" || conn.ClientID != "" || conn.ClientSecret != "" {
		t.Errorf("connection fields survived mode toggle: %+v", conn)
	}
	if !conn.UseLocal {
		t.Error("UseLocal not toggled")
	}
}

func TestSCOSizeDrivesWriteBufferFloor(t *testing.T) {
	s := NewState(nil)

	s.SetSCOSize(64)
	if got := s.WriteBufferMin(); got != 128 {
		t.Errorf("WriteBufferMin for SCO 64 = %d, want 128", got)
	}

	s.SetSCOSize(128)
	if got := s.WriteBufferMin(); got != 256 {
		t.Errorf("WriteBufferMin for SCO 128 = %d, want 256", got)
	}
}

func TestSCOSizeClampsOnlyOutOfRangeBuffer(t *testing.T) {
	s := NewState(nil)

	// 128 is valid for small SCOs but below the floor once the SCO grows.
	s.SetWriteBuffer(128)
	s.SetSCOSize(128)
	if got := s.WriteBuffer(); got != 256 {
		t.Errorf("out-of-range write buffer = %d after SCO change, want clamp to 256", got)
	}

	// An in-range value must be left untouched.
	s.SetWriteBuffer(512)
	s.SetSCOSize(64)
	if got := s.WriteBuffer(); got != 512 {
		t.Errorf("in-range write buffer = %d after SCO change, want 512 untouched", got)
	}
}

func TestSetReusedNodeCopiesStoredMetadata(t *testing.T) {
	s := NewState(nil)
	s.SetPool(&models.VPool{
		GUID: "pool-1",
		MetadataBackends: map[string]models.NodeMetadata{
			"node-1": {Host: "10.2.2.2", Port: 8443, ClientID: "stored", ClientSecret: "stored-secret"},
		},
	})

	s.SetReusedNode(&models.StorageNode{GUID: "node-1", Name: "node01", IP: "10.2.2.2"})

	conn := s.Connection(ScopeAccelerated)
	if conn.Host != "10.2.2.2" || conn.Port != 8443 || conn.ClientID != "stored" || conn.ClientSecret != "stored-secret" {
		t.Errorf("stored metadata not copied: %+v", conn)
	}
}

func TestSetReusedNodeWithoutMetadataClearsFields(t *testing.T) {
	s := NewState(nil)
	s.SetHost(ScopeAccelerated, "10.1.1.1")
	s.SetClientID(ScopeAccelerated, "user")

	s.SetReusedNode(&models.StorageNode{GUID: "node-2", Name: "node02"})

	conn := s.Connection(ScopeAccelerated)
	if conn.Host != "" || conn.ClientID != "" {
		t.Errorf("connection fields not cleared for node without metadata: %+v", conn)
	}
}

func TestSetReusedNodeResetsAcceleratedScope(t *testing.T) {
	s := NewState(nil)
	seedScope(t, s, ScopeAccelerated,
		detailFixture("guid-a", "alpha", presetFixture("default", true)))

	s.SetReusedNode(nil)

	if len(s.Backends(ScopeAccelerated)) != 0 || s.ChosenBackend(ScopeAccelerated) != nil {
		t.Error("accelerated scope survived reused-node change")
	}
}

func TestSelectBackendRepairsPreset(t *testing.T) {
	s := NewState(nil)
	seedScope(t, s, ScopePrimary,
		detailFixture("guid-a", "alpha", presetFixture("zz-last", true), presetFixture("aa-first", true)),
		detailFixture("guid-b", "beta"))

	s.SelectBackend(ScopePrimary, "guid-a")
	preset := s.ChosenPreset(ScopePrimary)
	if preset == nil || preset.Name != "aa-first" {
		t.Errorf("chosen preset = %+v, want first by name aa-first", preset)
	}

	// A backend without presets leaves the preset undefined.
	s.SelectBackend(ScopePrimary, "guid-b")
	if s.ChosenPreset(ScopePrimary) != nil {
		t.Error("preset not cleared for backend without presets")
	}

	// An unknown GUID clears the whole selection.
	s.SelectBackend(ScopePrimary, "guid-unknown")
	if s.ChosenBackend(ScopePrimary) != nil || s.ChosenPreset(ScopePrimary) != nil {
		t.Error("selection survived choosing an unknown backend")
	}
}

func TestSelectPresetFallsBackToFirst(t *testing.T) {
	s := NewState(nil)
	seedScope(t, s, ScopePrimary,
		detailFixture("guid-a", "alpha", presetFixture("aa-first", true), presetFixture("bb-second", true)))

	s.SelectPreset(ScopePrimary, "bb-second")
	if preset := s.ChosenPreset(ScopePrimary); preset == nil || preset.Name != "bb-second" {
		t.Errorf("chosen preset = %+v, want bb-second", preset)
	}

	s.SelectPreset(ScopePrimary, "does-not-exist")
	if preset := s.ChosenPreset(ScopePrimary); preset == nil || preset.Name != "aa-first" {
		t.Errorf("chosen preset = %+v, want fallback to aa-first", preset)
	}
}

func TestApplyDefaults(t *testing.T) {
	s := NewState(nil)
	s.ApplyDefaults(config.WizardDefaults{
		SCOSize:      128,
		WriteBuffer:  512,
		DTLMode:      "sync",
		DTLTransport: "rdma",
		ClusterSize:  8,
	})

	if got := s.SCOSize(); got != 128 {
		t.Errorf("SCOSize = %d, want 128", got)
	}
	if got := s.WriteBuffer(); got != 512 {
		t.Errorf("WriteBuffer = %d, want 512", got)
	}
	if got := s.WriteBufferMin(); got != 256 {
		t.Errorf("WriteBufferMin = %d, want 256 for SCO 128", got)
	}
	mode, transport := s.DTL()
	if mode != "sync" || transport != "rdma" {
		t.Errorf("DTL = %s/%s, want sync/rdma", mode, transport)
	}
	if got := s.ClusterSize(); got != 8 {
		t.Errorf("ClusterSize = %d, want 8", got)
	}
}
