package wizard

import (
	"github.com/openvstorage/vpool-wizard/internal/constants"
	"github.com/openvstorage/vpool-wizard/internal/validation"
)

// StepStatus tells the surrounding step framework whether a wizard step may
// proceed, and which fields and messages to highlight when it may not.
type StepStatus struct {
	Value      bool
	ShowErrors bool
	Reasons    []string
	Fields     []string
}

func (s *StepStatus) block(field, reason string) {
	s.Value = false
	s.ShowErrors = true
	s.Fields = append(s.Fields, field)
	s.Reasons = append(s.Reasons, reason)
}

// ConnectionStep checks whether a scope's connection fields are complete and
// well-formed. A scope pointed at the local installation needs no fields at
// all; a remote one needs a valid IP, a valid port and both credentials.
func (s *State) ConnectionStep(scope Scope) StepStatus {
	status := StepStatus{Value: true}

	conn := s.Connection(scope)
	if conn.UseLocal {
		return status
	}

	if !validation.ValidateIP(conn.Host) {
		status.block("host", "the host must be a valid IP address")
	}
	if !validation.ValidatePort(conn.Port) {
		status.block("port", "the port must be in the range 1 - 65535")
	}
	if conn.ClientID == "" {
		status.block("client_id", "a client id is required")
	}
	if conn.ClientSecret == "" {
		status.block("client_secret", "a client secret is required")
	}
	return status
}

// BackendStep checks whether a scope has a usable backend and preset chosen.
// A failed discovery surfaces here as a single consolidated message.
func (s *State) BackendStep(scope Scope) StepStatus {
	status := StepStatus{Value: true}

	if s.InvalidInfo(scope) {
		status.block("backend", "the connection information is invalid or the installation is unreachable")
		return status
	}
	chosen := s.ChosenBackend(scope)
	if chosen == nil {
		status.block("backend", "a backend must be selected")
		return status
	}
	preset := s.ChosenPreset(scope)
	if preset == nil {
		status.block("preset", "the selected backend has no presets")
		return status
	}
	if !s.PresetAvailable(scope, chosen.GUID, preset.Name) {
		status.block("preset", "the selected preset has no available policy")
	}
	return status
}

// SizingStep checks the pool name and every sizing field against its bounds.
func (s *State) SizingStep() StepStatus {
	status := StepStatus{Value: true}

	if !validation.ValidateName(s.Name()) {
		status.block("name", "the name may only consist of 3 - 22 lowercase letters, digits and dashes")
	}
	if !validation.ValidateIntRange(s.WriteBuffer(), s.WriteBufferMin(), constants.WriteBufferMax) {
		status.block("write_buffer", "the write buffer is out of range")
	}
	if !validation.ValidateIntRange(s.ReadCacheSize(), constants.CacheSizeMin, constants.CacheSizeMax) {
		status.block("read_cache", "the read cache size is out of range")
	}
	if !validation.ValidateIntRange(s.WriteCacheSize(), constants.CacheSizeMin, constants.CacheSizeMax) {
		status.block("write_cache", "the write cache size is out of range")
	}
	if !containsInt(constants.SCOSizes, s.SCOSize()) {
		status.block("sco_size", "the SCO size is not a supported value")
	}
	if !containsInt(constants.ClusterSizes, s.ClusterSize()) {
		status.block("cluster_size", "the cluster size is not a supported value")
	}
	return status
}

// ConfirmStep aggregates every preceding step: the wizard may only create
// the pool when all of them pass.
func (s *State) ConfirmStep() StepStatus {
	status := StepStatus{Value: true}

	for _, step := range []StepStatus{
		s.ConnectionStep(ScopePrimary),
		s.ConnectionStep(ScopeAccelerated),
		s.BackendStep(ScopePrimary),
		s.SizingStep(),
	} {
		if !step.Value {
			status.Value = false
			status.ShowErrors = true
			status.Fields = append(status.Fields, step.Fields...)
			status.Reasons = append(status.Reasons, step.Reasons...)
		}
	}
	return status
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
