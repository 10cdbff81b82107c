package wizard

import (
	"testing"
)

func TestConnectionStepLocalAlwaysPasses(t *testing.T) {
	s := NewState(nil)

	status := s.ConnectionStep(ScopePrimary)
	if !status.Value || status.ShowErrors {
		t.Errorf("local connection step = %+v, want passing", status)
	}
}

func TestConnectionStepRemoteRequiresFields(t *testing.T) {
	s := NewState(nil)
	s.SetUseLocal(ScopeAccelerated, false)

	status := s.ConnectionStep(ScopeAccelerated)
	if status.Value {
		t.Fatal("empty remote connection must not pass")
	}
	if !status.ShowErrors {
		t.Error("ShowErrors not set")
	}

	wantFields := map[string]bool{"host": true, "client_id": true, "client_secret": true}
	for _, field := range status.Fields {
		delete(wantFields, field)
	}
	for field := range wantFields {
		t.Errorf("field %s not flagged", field)
	}
	if len(status.Reasons) != len(status.Fields) {
		t.Errorf("reasons (%d) and fields (%d) out of step", len(status.Reasons), len(status.Fields))
	}
}

func TestConnectionStepRemoteValidates(t *testing.T) {
	s := NewState(nil)
	s.SetUseLocal(ScopeAccelerated, false)
	s.SetHost(ScopeAccelerated, "not-an-ip")
	s.SetPort(ScopeAccelerated, 8443)
	s.SetClientID(ScopeAccelerated, "user")
	s.SetClientSecret(ScopeAccelerated, "secret")

	status := s.ConnectionStep(ScopeAccelerated)
	if status.Value {
		t.Fatal("malformed host must not pass")
	}
	if len(status.Fields) != 1 || status.Fields[0] != "host" {
		t.Errorf("fields = %v, want [host]", status.Fields)
	}

	s.SetHost(ScopeAccelerated, "10.1.1.1")
	// Connection mutations reset selection but the step only reads the
	// connection fields, so it passes now.
	if status := s.ConnectionStep(ScopeAccelerated); !status.Value {
		t.Errorf("valid remote connection = %+v, want passing", status)
	}
}

func TestBackendStepSurfacesInvalidInfo(t *testing.T) {
	s := NewState(nil)
	s.mu.Lock()
	s.markInvalidLocked(ScopeAccelerated)
	s.mu.Unlock()

	status := s.BackendStep(ScopeAccelerated)
	if status.Value {
		t.Fatal("invalid-info scope must not pass")
	}
	if len(status.Reasons) != 1 {
		t.Errorf("reasons = %v, want one consolidated message", status.Reasons)
	}
}

func TestBackendStepRequiresSelection(t *testing.T) {
	s := NewState(nil)

	if status := s.BackendStep(ScopePrimary); status.Value {
		t.Error("empty scope must not pass")
	}

	seedScope(t, s, ScopePrimary,
		detailFixture("guid-a", "alpha", presetFixture("default", true)))

	if status := s.BackendStep(ScopePrimary); !status.Value {
		t.Errorf("scope with selection = %+v, want passing", status)
	}
}

func TestBackendStepRejectsUnavailablePreset(t *testing.T) {
	s := NewState(nil)
	seedScope(t, s, ScopePrimary,
		detailFixture("guid-a", "alpha", presetFixture("default", false)))

	status := s.BackendStep(ScopePrimary)
	if status.Value {
		t.Error("preset without available policy must not pass")
	}
}

func TestSizingStepChecksBounds(t *testing.T) {
	s := NewState(nil)
	s.SetName("pool01")

	if status := s.SizingStep(); !status.Value {
		t.Fatalf("default sizing = %+v, want passing", status)
	}

	s.SetWriteBuffer(64) // below the 128 floor
	status := s.SizingStep()
	if status.Value {
		t.Fatal("write buffer below floor must not pass")
	}
	if len(status.Fields) != 1 || status.Fields[0] != "write_buffer" {
		t.Errorf("fields = %v, want [write_buffer]", status.Fields)
	}
}

func TestSizingStepChecksName(t *testing.T) {
	s := NewState(nil)
	s.SetName("-Bad-Name-")

	status := s.SizingStep()
	if status.Value {
		t.Fatal("invalid name must not pass")
	}
	if len(status.Fields) == 0 || status.Fields[0] != "name" {
		t.Errorf("fields = %v, want name first", status.Fields)
	}
}

func TestConfirmStepAggregates(t *testing.T) {
	s := NewState(nil)
	s.SetName("pool01")
	seedScope(t, s, ScopePrimary,
		detailFixture("guid-a", "alpha", presetFixture("default", true)))

	if status := s.ConfirmStep(); !status.Value {
		t.Fatalf("complete wizard = %+v, want passing", status)
	}

	s.SetName("x") // too short
	status := s.ConfirmStep()
	if status.Value {
		t.Fatal("invalid name must fail confirmation")
	}
	found := false
	for _, field := range status.Fields {
		if field == "name" {
			found = true
		}
	}
	if !found {
		t.Errorf("fields = %v, want name included", status.Fields)
	}
}
