package tui

import (
	"context"
	"encoding/json"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/openvstorage/vpool-wizard/internal/api"
	"github.com/openvstorage/vpool-wizard/internal/models"
	"github.com/openvstorage/vpool-wizard/internal/wizard"
)

// stubClient satisfies wizard.BackendClient; the tests drive the model with
// messages directly, so the client is never reached.
type stubClient struct{}

func (stubClient) ListBackends(ctx context.Context, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
	return nil, nil
}

func (stubClient) GetBackendDetail(ctx context.Context, guid string, conn api.ConnectionParams) (*models.BackendDetail, error) {
	return nil, nil
}

func newTestModel() (model, *wizard.State) {
	state := wizard.NewState(nil)
	discoverer := wizard.NewDiscoverer(state, stubClient{}, nil)
	return newModel(context.Background(), state, discoverer), state
}

func seedBackends(state *wizard.State, scope wizard.Scope) {
	details := []*models.BackendDetail{
		{
			Available:     true,
			GUID:          "guid-a",
			Name:          "alpha",
			ASDStatistics: map[string]json.RawMessage{"asd-1": json.RawMessage(`{}`)},
			Presets: []models.Preset{{
				Name:     "default",
				Policies: []string{"(1, 1, 1, 2)"},
				PolicyMetadata: map[string]models.PolicyStatus{
					"(1, 1, 1, 2)": {IsAvailable: true},
				},
			}},
		},
		{
			Available:     true,
			GUID:          "guid-b",
			Name:          "beta",
			ASDStatistics: map[string]json.RawMessage{"asd-1": json.RawMessage(`{}`)},
			Presets:       []models.Preset{{Name: "default"}},
		},
	}

	d := wizard.NewDiscoverer(state, seededClient{details: details}, nil)
	if err := d.Discover(context.Background(), scope); err != nil {
		panic(err)
	}
}

// seededClient serves a fixed detail set so tests can populate a scope
// through the regular discovery path.
type seededClient struct {
	details []*models.BackendDetail
}

func (c seededClient) ListBackends(ctx context.Context, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error) {
	entries := make([]models.BackendListEntry, 0, len(c.details))
	for _, d := range c.details {
		entries = append(entries, models.BackendListEntry{Available: true, LinkedGUID: d.GUID, Name: d.Name})
	}
	return entries, nil
}

func (c seededClient) GetBackendDetail(ctx context.Context, guid string, conn api.ConnectionParams) (*models.BackendDetail, error) {
	for _, d := range c.details {
		if d.GUID == guid {
			return d, nil
		}
	}
	return nil, nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLocalConnectionAdvancesToDiscovery(t *testing.T) {
	m, _ := newTestModel()

	if m.step().kind != kindConnection {
		t.Fatalf("initial step = %v, want connection", m.step().kind)
	}

	next, cmd := m.Update(key("enter"))
	m = next.(model)

	if m.step().kind != kindDiscover {
		t.Errorf("step after enter = %v, want discover", m.step().kind)
	}
	if cmd == nil {
		t.Error("expected a discovery command")
	}
}

func TestDiscoveryFailureRetreatsToConnection(t *testing.T) {
	m, _ := newTestModel()
	next, _ := m.Update(key("enter"))
	m = next.(model)

	next, _ = m.Update(discoveryFinishedMsg{scope: wizard.ScopePrimary, err: context.DeadlineExceeded})
	m = next.(model)

	if m.step().kind != kindConnection {
		t.Errorf("step after failed discovery = %v, want connection", m.step().kind)
	}
	if m.errMsg == "" {
		t.Error("expected an error message")
	}
}

func TestStaleDiscoveryResultIsIgnored(t *testing.T) {
	m, _ := newTestModel()

	// Still on the primary connection step; an accelerated-scope completion
	// must not move the wizard.
	next, _ := m.Update(discoveryFinishedMsg{scope: wizard.ScopeAccelerated})
	m = next.(model)

	if m.step().kind != kindConnection {
		t.Errorf("step = %v, want connection untouched", m.step().kind)
	}
}

func TestBackendSelectionFlow(t *testing.T) {
	m, state := newTestModel()
	seedBackends(state, wizard.ScopePrimary)

	next, _ := m.Update(key("enter")) // connection -> discover
	m = next.(model)
	next, _ = m.Update(discoveryFinishedMsg{scope: wizard.ScopePrimary})
	m = next.(model)

	if m.step().kind != kindBackends {
		t.Fatalf("step = %v, want backends", m.step().kind)
	}

	// Move to the second backend and select it.
	next, _ = m.Update(key("down"))
	m = next.(model)
	next, _ = m.Update(key("enter"))
	m = next.(model)

	if chosen := state.ChosenBackend(wizard.ScopePrimary); chosen == nil || chosen.Name != "beta" {
		t.Errorf("chosen = %+v, want beta", chosen)
	}
	if m.step().kind != kindPresets {
		t.Errorf("step = %v, want presets", m.step().kind)
	}
}

func TestRemoteToggleClearsScopeSelection(t *testing.T) {
	m, state := newTestModel()
	seedBackends(state, wizard.ScopePrimary)

	next, _ := m.Update(key(" ")) // toggle to remote on the connection step
	m = next.(model)

	if state.Connection(wizard.ScopePrimary).UseLocal {
		t.Error("scope still local after toggle")
	}
	if state.ChosenBackend(wizard.ScopePrimary) != nil {
		t.Error("selection survived the connection-mode toggle")
	}
}
