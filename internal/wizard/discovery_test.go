package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openvstorage/vpool-wizard/internal/api"
	"github.com/openvstorage/vpool-wizard/internal/models"
)

// fakeClient implements BackendClient with pluggable behavior per call.
type fakeClient struct {
	mu          sync.Mutex
	listCalls   int
	detailCalls int
	list        func(call int, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error)
	detail      func(call int, guid string, conn api.ConnectionParams) (*models.BackendDetail, error)
}

func (f *fakeClient) ListBackends(ctx context.Context, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
	f.mu.Lock()
	f.listCalls++
	call := f.listCalls
	f.mu.Unlock()
	return f.list(call, backendType, conn)
}

func (f *fakeClient) GetBackendDetail(ctx context.Context, guid string, conn api.ConnectionParams) (*models.BackendDetail, error) {
	f.mu.Lock()
	f.detailCalls++
	call := f.detailCalls
	f.mu.Unlock()
	return f.detail(call, guid, conn)
}

func entryFixture(guid string, available bool) models.BackendListEntry {
	return models.BackendListEntry{Available: available, LinkedGUID: guid, Name: guid}
}

func TestDiscoverRetainsEligibleBackends(t *testing.T) {
	withStats := detailFixture("guid-a", "alpha",
		presetFixture("bb-second", true), presetFixture("aa-first", true))

	withoutStats := detailFixture("guid-b", "beta", presetFixture("default", true))
	withoutStats.ASDStatistics = map[string]json.RawMessage{}

	client := &fakeClient{
		list: func(call int, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
			if backendType != "alba" {
				t.Errorf("backend_type = %s, want alba", backendType)
			}
			return []models.BackendListEntry{
				entryFixture("guid-a", true),
				entryFixture("guid-b", true),
				entryFixture("guid-c", false), // filtered before the detail phase
			}, nil
		},
		detail: func(call int, guid string, conn api.ConnectionParams) (*models.BackendDetail, error) {
			switch guid {
			case "guid-a":
				return withStats, nil
			case "guid-b":
				return withoutStats, nil
			}
			t.Errorf("unexpected detail call for %s", guid)
			return nil, errors.New("unexpected guid")
		},
	}

	s := NewState(nil)
	d := NewDiscoverer(s, client, nil)

	if err := d.Discover(context.Background(), ScopeAccelerated); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	backends := s.Backends(ScopeAccelerated)
	if len(backends) != 1 || backends[0].GUID != "guid-a" {
		t.Fatalf("backends = %+v, want exactly guid-a", backends)
	}
	if !backends[0].Loaded {
		t.Error("retained backend not marked loaded")
	}
	if chosen := s.ChosenBackend(ScopeAccelerated); chosen == nil || chosen.GUID != "guid-a" {
		t.Errorf("chosen = %+v, want guid-a", chosen)
	}
	if preset := s.ChosenPreset(ScopeAccelerated); preset == nil || preset.Name != "aa-first" {
		t.Errorf("chosen preset = %+v, want first by name aa-first", preset)
	}
	if !s.PresetAvailable(ScopeAccelerated, "guid-a", "aa-first") {
		t.Error("preset availability not recorded")
	}
	if s.InvalidInfo(ScopeAccelerated) {
		t.Error("invalid-info raised on a successful discovery")
	}
	if client.detailCalls != 2 {
		t.Errorf("detail calls = %d, want 2 (unavailable entries skip the detail phase)", client.detailCalls)
	}
}

func TestDiscoverExcludesChosenPrimaryFromAccelerated(t *testing.T) {
	s := NewState(nil)
	seedScope(t, s, ScopePrimary, detailFixture("guid-a", "alpha", presetFixture("default", true)))

	client := &fakeClient{
		list: func(call int, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
			return []models.BackendListEntry{
				entryFixture("guid-a", true),
				entryFixture("guid-b", true),
			}, nil
		},
		detail: func(call int, guid string, conn api.ConnectionParams) (*models.BackendDetail, error) {
			return detailFixture(guid, guid, presetFixture("default", true)), nil
		},
	}
	d := NewDiscoverer(s, client, nil)

	if err := d.Discover(context.Background(), ScopeAccelerated); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	backends := s.Backends(ScopeAccelerated)
	if len(backends) != 1 || backends[0].GUID != "guid-b" {
		t.Errorf("backends = %+v, want only guid-b (guid-a is the chosen primary)", backends)
	}
}

func TestDiscoverListFailureMarksScopeInvalid(t *testing.T) {
	s := NewState(nil)
	seedScope(t, s, ScopeAccelerated, detailFixture("guid-old", "old", presetFixture("default", true)))

	client := &fakeClient{
		list: func(call int, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
			return nil, errors.New("connection refused")
		},
	}
	d := NewDiscoverer(s, client, nil)

	if err := d.Discover(context.Background(), ScopeAccelerated); err == nil {
		t.Fatal("expected error from failed list call")
	}

	if got := s.Backends(ScopeAccelerated); len(got) != 0 {
		t.Errorf("backends = %+v, want empty after failure", got)
	}
	if s.ChosenBackend(ScopeAccelerated) != nil || s.ChosenPreset(ScopeAccelerated) != nil {
		t.Error("selection survived a failed discovery")
	}
	if !s.InvalidInfo(ScopeAccelerated) {
		t.Error("invalid-info flag not raised")
	}
}

func TestDiscoverDetailFailureMarksScopeInvalid(t *testing.T) {
	client := &fakeClient{
		list: func(call int, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
			return []models.BackendListEntry{
				entryFixture("guid-a", true),
				entryFixture("guid-b", true),
			}, nil
		},
		detail: func(call int, guid string, conn api.ConnectionParams) (*models.BackendDetail, error) {
			if guid == "guid-b" {
				return nil, errors.New("timeout")
			}
			return detailFixture(guid, guid, presetFixture("default", true)), nil
		},
	}

	s := NewState(nil)
	d := NewDiscoverer(s, client, nil)

	if err := d.Discover(context.Background(), ScopeAccelerated); err == nil {
		t.Fatal("expected error when a detail call fails")
	}
	if !s.InvalidInfo(ScopeAccelerated) {
		t.Error("invalid-info flag not raised")
	}
	if len(s.Backends(ScopeAccelerated)) != 0 {
		t.Error("partial fan-out results were applied")
	}
}

func TestDiscoverEmptyResultClearsSelection(t *testing.T) {
	s := NewState(nil)
	seedScope(t, s, ScopeAccelerated, detailFixture("guid-old", "old", presetFixture("default", true)))

	client := &fakeClient{
		list: func(call int, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
			return []models.BackendListEntry{}, nil
		},
	}
	d := NewDiscoverer(s, client, nil)

	if err := d.Discover(context.Background(), ScopeAccelerated); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if len(s.Backends(ScopeAccelerated)) != 0 || s.ChosenBackend(ScopeAccelerated) != nil {
		t.Error("selection survived an empty discovery result")
	}
	if s.InvalidInfo(ScopeAccelerated) {
		t.Error("an empty result is not a failure")
	}
}

func TestDiscoverSupersededRunIsDiscarded(t *testing.T) {
	firstBlocked := make(chan struct{})
	release := make(chan struct{})

	client := &fakeClient{
		list: func(call int, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
			if call == 1 {
				return []models.BackendListEntry{entryFixture("guid-first", true)}, nil
			}
			return []models.BackendListEntry{entryFixture("guid-second", true)}, nil
		},
		detail: func(call int, guid string, conn api.ConnectionParams) (*models.BackendDetail, error) {
			if guid == "guid-first" {
				close(firstBlocked)
				<-release // hold the first run in its fan-out phase
			}
			return detailFixture(guid, guid, presetFixture("default", true)), nil
		},
	}

	s := NewState(nil)
	d := NewDiscoverer(s, client, nil)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- d.Discover(context.Background(), ScopeAccelerated)
	}()

	select {
	case <-firstBlocked:
	case <-time.After(5 * time.Second):
		t.Fatal("first discovery never reached its detail phase")
	}

	// Start the superseding run while the first is still in flight.
	if err := d.Discover(context.Background(), ScopeAccelerated); err != nil {
		t.Fatalf("second discovery failed: %v", err)
	}
	if chosen := s.ChosenBackend(ScopeAccelerated); chosen == nil || chosen.GUID != "guid-second" {
		t.Fatalf("chosen = %+v, want guid-second", chosen)
	}

	// Let the first run finish; its late result must not touch state.
	close(release)
	select {
	case err := <-firstDone:
		if err != nil {
			t.Fatalf("superseded discovery returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first discovery never settled")
	}

	backends := s.Backends(ScopeAccelerated)
	if len(backends) != 1 || backends[0].GUID != "guid-second" {
		t.Errorf("backends = %+v, want only the second run's guid-second", backends)
	}
	if chosen := s.ChosenBackend(ScopeAccelerated); chosen == nil || chosen.GUID != "guid-second" {
		t.Errorf("chosen = %+v, late first-run result was applied", chosen)
	}
}

func TestConnectionChangeInvalidatesInFlightRun(t *testing.T) {
	blocked := make(chan struct{})
	release := make(chan struct{})

	client := &fakeClient{
		list: func(call int, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
			return []models.BackendListEntry{entryFixture("guid-old", true)}, nil
		},
		detail: func(call int, guid string, conn api.ConnectionParams) (*models.BackendDetail, error) {
			close(blocked)
			<-release // hold the run in its fan-out phase
			return detailFixture(guid, guid, presetFixture("default", true)), nil
		},
	}

	s := NewState(nil)
	s.SetUseLocal(ScopeAccelerated, false)
	s.SetHost(ScopeAccelerated, "10.1.1.1")
	d := NewDiscoverer(s, client, nil)

	done := make(chan error, 1)
	go func() {
		done <- d.Discover(context.Background(), ScopeAccelerated)
	}()

	select {
	case <-blocked:
	case <-time.After(5 * time.Second):
		t.Fatal("discovery never reached its detail phase")
	}

	// The user edits the connection while the run is still in flight. The
	// scope resets immediately; the run's eventual result was fetched under
	// the old host and must not land in the reset scope.
	s.SetHost(ScopeAccelerated, "10.2.2.2")
	close(release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("invalidated discovery returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("discovery never settled")
	}

	if got := s.Backends(ScopeAccelerated); len(got) != 0 {
		t.Errorf("backends = %+v, a list fetched under the old host survived the host change", got)
	}
	if s.ChosenBackend(ScopeAccelerated) != nil {
		t.Error("a stale run's selection was applied after the scope reset")
	}
	if s.InvalidInfo(ScopeAccelerated) {
		t.Error("the reset scope must not be marked invalid")
	}
}

func TestConnectionChangeDropsInFlightFailure(t *testing.T) {
	blocked := make(chan struct{})
	release := make(chan struct{})

	client := &fakeClient{
		list: func(call int, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
			return []models.BackendListEntry{entryFixture("guid-old", true)}, nil
		},
		detail: func(call int, guid string, conn api.ConnectionParams) (*models.BackendDetail, error) {
			close(blocked)
			<-release
			return nil, errors.New("timeout")
		},
	}

	s := NewState(nil)
	s.SetUseLocal(ScopeAccelerated, false)
	s.SetHost(ScopeAccelerated, "10.1.1.1")
	d := NewDiscoverer(s, client, nil)

	done := make(chan error, 1)
	go func() {
		done <- d.Discover(context.Background(), ScopeAccelerated)
	}()

	select {
	case <-blocked:
	case <-time.After(5 * time.Second):
		t.Fatal("discovery never reached its detail phase")
	}

	s.SetHost(ScopeAccelerated, "10.2.2.2")
	close(release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("invalidated discovery returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("discovery never settled")
	}

	// The failure belongs to the old connection fields; the reset already
	// left the scope clean.
	if s.InvalidInfo(ScopeAccelerated) {
		t.Error("a stale run's failure marked the reset scope invalid")
	}
}

func TestCancelDropsInFlightRun(t *testing.T) {
	blocked := make(chan struct{})
	release := make(chan struct{})

	client := &fakeClient{
		list: func(call int, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
			return []models.BackendListEntry{entryFixture("guid-a", true)}, nil
		},
		detail: func(call int, guid string, conn api.ConnectionParams) (*models.BackendDetail, error) {
			close(blocked)
			<-release
			return detailFixture(guid, guid, presetFixture("default", true)), nil
		},
	}

	s := NewState(nil)
	d := NewDiscoverer(s, client, nil)

	done := make(chan error, 1)
	go func() {
		done <- d.Discover(context.Background(), ScopeAccelerated)
	}()

	select {
	case <-blocked:
	case <-time.After(5 * time.Second):
		t.Fatal("discovery never reached its detail phase")
	}

	d.Cancel(ScopeAccelerated)
	close(release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancelled discovery returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("discovery never settled")
	}

	if len(s.Backends(ScopeAccelerated)) != 0 {
		t.Error("cancelled run's result was applied")
	}
	if s.InvalidInfo(ScopeAccelerated) {
		t.Error("cancellation must not mark the scope invalid")
	}
}

func TestDiscoverPassesConnectionFields(t *testing.T) {
	var gotConn api.ConnectionParams

	client := &fakeClient{
		list: func(call int, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
			gotConn = conn
			return nil, nil
		},
	}

	s := NewState(nil)
	s.SetUseLocal(ScopeAccelerated, false)
	s.SetHost(ScopeAccelerated, "10.3.3.3")
	s.SetPort(ScopeAccelerated, 8443)
	s.SetClientID(ScopeAccelerated, "remote")
	s.SetClientSecret(ScopeAccelerated, "remote-secret")

	d := NewDiscoverer(s, client, nil)
	if err := d.Discover(context.Background(), ScopeAccelerated); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if gotConn.UseLocal {
		t.Error("UseLocal = true, want false")
	}
	if gotConn.Host != "10.3.3.3" || gotConn.Port != 8443 || gotConn.ClientID != "remote" || gotConn.ClientSecret != "remote-secret" {
		t.Errorf("connection params = %+v", gotConn)
	}
}
