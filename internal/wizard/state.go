// Package wizard implements the accelerated-backend discovery and selection
// core of the vPool creation flow: the shared wizard state with its dependent
// field resets, the preset enhancement transform, the cancellable backend
// discovery and the per-step readiness checks.
package wizard

import (
	"sort"
	"sync"

	"github.com/openvstorage/vpool-wizard/internal/config"
	"github.com/openvstorage/vpool-wizard/internal/constants"
	"github.com/openvstorage/vpool-wizard/internal/events"
	"github.com/openvstorage/vpool-wizard/internal/models"
)

// Scope selects one of the two parallel connection/selection field sets: the
// primary backend of the pool or the accelerated (cache-tier) backend.
type Scope string

const (
	ScopePrimary     Scope = "primary"
	ScopeAccelerated Scope = "accelerated"
)

// ConnectionInfo holds the connection fields of one scope.
type ConnectionInfo struct {
	UseLocal     bool
	Host         string
	Port         int
	ClientID     string
	ClientSecret string
}

// selection holds the discovery outcome and the current choice of one scope.
// The registry keeps one Backend per GUID across re-discoveries so a refresh
// refills the existing entity instead of allocating a new one; it is dropped
// together with the list whenever the scope resets.
//
// The epoch counts scope resets. A discovery run captures it together with
// the connection fields and refuses to merge once it moved on: results
// fetched under old connection parameters must never land in a scope that
// reset while they were in flight.
type selection struct {
	backends           []*models.Backend
	chosen             *models.Backend
	chosenPreset       *EnhancedPreset
	presetAvailability map[string]map[string]bool
	invalidInfo        bool
	registry           map[string]*models.Backend
	epoch              uint64
}

func newSelection() *selection {
	return &selection{
		presetAvailability: make(map[string]map[string]bool),
		registry:           make(map[string]*models.Backend),
	}
}

// State is the canonical in-progress wizard record, shared by the CLI, the
// terminal UI and the discovery goroutines. It lives for one wizard session.
//
// Every mutator updates the raw value and then runs its fixed list of
// dependent recomputations: connection-field changes invalidate the scope's
// backend list and selection, an SCO size change recomputes the write-buffer
// lower bound, a backend change re-repairs the chosen preset. There is no
// implicit reactive graph; each derivation is an explicit function here.
type State struct {
	mu  sync.Mutex
	bus *events.Bus

	name        string
	backendType string

	connections map[Scope]*ConnectionInfo
	selections  map[Scope]*selection

	cacheStrategy  string
	dedupeMode     string
	scoSize        int
	writeBuffer    int
	writeBufferMin int
	readCacheSize  int
	writeCacheSize int
	dtlMode        string
	dtlTransport   string
	clusterSize    int

	pool       *models.VPool
	reusedNode *models.StorageNode
}

// NewState creates a session state seeded with the platform defaults.
func NewState(bus *events.Bus) *State {
	return &State{
		bus: bus,
		connections: map[Scope]*ConnectionInfo{
			ScopePrimary:     {UseLocal: true, Port: constants.DefaultAPIPort},
			ScopeAccelerated: {UseLocal: true, Port: constants.DefaultAPIPort},
		},
		selections: map[Scope]*selection{
			ScopePrimary:     newSelection(),
			ScopeAccelerated: newSelection(),
		},
		backendType:    constants.BackendTypeAlba,
		cacheStrategy:  constants.CacheStrategyOnRead,
		dedupeMode:     constants.DedupeModeNonDedupe,
		scoSize:        constants.SCOSizes[0],
		writeBuffer:    constants.WriteBufferMinSmallSCO,
		writeBufferMin: constants.WriteBufferMinSmallSCO,
		readCacheSize:  constants.CacheSizeMin,
		writeCacheSize: constants.CacheSizeMin,
		dtlMode:        constants.DTLModeASync,
		dtlTransport:   constants.DTLTransportTCP,
		clusterSize:    constants.ClusterSizes[0],
	}
}

// ApplyDefaults overrides the seeded sizing fields with configured defaults.
// Invalid values are assumed to have been rejected by config validation.
func (s *State) ApplyDefaults(d config.WizardDefaults) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.SCOSize > 0 {
		s.scoSize = d.SCOSize
		s.recomputeWriteBufferBoundLocked()
	}
	if d.WriteBuffer > 0 {
		s.writeBuffer = d.WriteBuffer
		s.recomputeWriteBufferBoundLocked()
	}
	if d.DTLMode != "" {
		s.dtlMode = d.DTLMode
	}
	if d.DTLTransport != "" {
		s.dtlTransport = d.DTLTransport
	}
	if d.CacheStrategy != "" {
		s.cacheStrategy = d.CacheStrategy
	}
	if d.DedupeMode != "" {
		s.dedupeMode = d.DedupeMode
	}
	if d.ClusterSize > 0 {
		s.clusterSize = d.ClusterSize
	}
}

// resetLocked clears the backend list, chosen backend and chosen preset of a
// scope. Stale backend lists must never survive a connection-parameter
// change, so every connection mutator funnels through here.
func (s *State) resetLocked(scope Scope) {
	sel := s.selections[scope]
	sel.backends = nil
	sel.chosen = nil
	sel.chosenPreset = nil
	sel.presetAvailability = make(map[string]map[string]bool)
	sel.registry = make(map[string]*models.Backend)
	sel.invalidInfo = false
	sel.epoch++

	if s.bus != nil {
		s.bus.PublishScopeReset(string(scope))
	}
}

// Reset clears a scope's discovery outcome and selection.
func (s *State) Reset(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(scope)
}

func (s *State) publishFieldLocked(scope Scope, field string) {
	if s.bus != nil {
		s.bus.PublishFieldChanged(string(scope), field)
	}
}

// SetUseLocal toggles between the local installation and a remote one. The
// toggle clears the scope's host, port and credentials before the reset, so
// values entered for one mode never leak into the other.
func (s *State) SetUseLocal(scope Scope, useLocal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn := s.connections[scope]
	if conn.UseLocal == useLocal {
		return
	}
	conn.UseLocal = useLocal
	conn.Host = ""
	conn.Port = constants.DefaultAPIPort
	conn.ClientID = ""
	conn.ClientSecret = ""
	s.publishFieldLocked(scope, "use_local")
	s.resetLocked(scope)
}

// SetHost updates a scope's host and invalidates its discovery outcome.
func (s *State) SetHost(scope Scope, host string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn := s.connections[scope]
	if conn.Host == host {
		return
	}
	conn.Host = host
	s.publishFieldLocked(scope, "host")
	s.resetLocked(scope)
}

// SetPort updates a scope's port and invalidates its discovery outcome.
func (s *State) SetPort(scope Scope, port int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn := s.connections[scope]
	if conn.Port == port {
		return
	}
	conn.Port = port
	s.publishFieldLocked(scope, "port")
	s.resetLocked(scope)
}

// SetClientID updates a scope's client id and invalidates its discovery
// outcome.
func (s *State) SetClientID(scope Scope, clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn := s.connections[scope]
	if conn.ClientID == clientID {
		return
	}
	conn.ClientID = clientID
	s.publishFieldLocked(scope, "client_id")
	s.resetLocked(scope)
}

// SetClientSecret updates a scope's client secret and invalidates its
// discovery outcome.
func (s *State) SetClientSecret(scope Scope, clientSecret string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn := s.connections[scope]
	if conn.ClientSecret == clientSecret {
		return
	}
	conn.ClientSecret = clientSecret
	s.publishFieldLocked(scope, "client_secret")
	s.resetLocked(scope)
}

// SetBackendType changes the backend-type filter used by discovery. Both
// scopes lose their discovery outcome: the lists were fetched for the old
// type.
func (s *State) SetBackendType(backendType string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backendType == backendType {
		return
	}
	s.backendType = backendType
	s.publishFieldLocked(ScopePrimary, "backend_type")
	s.resetLocked(ScopePrimary)
	s.resetLocked(ScopeAccelerated)
}

// SetName updates the pool name.
func (s *State) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *State) recomputeWriteBufferBoundLocked() {
	if s.scoSize < constants.SCOSizeThreshold {
		s.writeBufferMin = constants.WriteBufferMinSmallSCO
	} else {
		s.writeBufferMin = constants.WriteBufferMinLargeSCO
	}
	// Clamp only when the current value fell out of range; an in-range
	// value is left untouched.
	if s.writeBuffer < s.writeBufferMin {
		s.writeBuffer = s.writeBufferMin
	} else if s.writeBuffer > constants.WriteBufferMax {
		s.writeBuffer = constants.WriteBufferMax
	}
}

// SetSCOSize changes the SCO size and recomputes the write-buffer lower
// bound: 128 MiB for SCOs below 128 MiB, 256 MiB from there on.
func (s *State) SetSCOSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scoSize = size
	s.recomputeWriteBufferBoundLocked()
}

// SetWriteBuffer sets the write-buffer size without clamping; callers gate
// on the step checks for range validity.
func (s *State) SetWriteBuffer(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeBuffer = size
}

// SetReadCacheSize sets the read cache size in GiB.
func (s *State) SetReadCacheSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readCacheSize = size
}

// SetWriteCacheSize sets the write cache size in GiB.
func (s *State) SetWriteCacheSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeCacheSize = size
}

// SetCacheStrategy sets the cache strategy.
func (s *State) SetCacheStrategy(strategy string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheStrategy = strategy
}

// SetDedupeMode sets the deduplication mode.
func (s *State) SetDedupeMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dedupeMode = mode
}

// SetDTL sets the distributed transaction log mode and transport.
func (s *State) SetDTL(mode, transport string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dtlMode = mode
	s.dtlTransport = transport
}

// SetClusterSize sets the cluster size in KiB.
func (s *State) SetClusterSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusterSize = size
}

// SetPool attaches the pool being created or extended. Its stored node
// metadata feeds the reused-node flow.
func (s *State) SetPool(pool *models.VPool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool = pool
}

// SetReusedNode selects or clears the storage node whose cache tier the pool
// re-uses. The accelerated connection fields are cleared first; when the
// edited pool already stores metadata for the node, those values are copied
// in verbatim. The accelerated scope resets either way, its connection
// fields just changed.
func (s *State) SetReusedNode(node *models.StorageNode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reusedNode = node

	conn := s.connections[ScopeAccelerated]
	conn.Host = ""
	conn.Port = constants.DefaultAPIPort
	conn.ClientID = ""
	conn.ClientSecret = ""

	if node != nil && s.pool != nil {
		if meta, ok := s.pool.MetadataBackends[node.GUID]; ok {
			conn.Host = meta.Host
			conn.Port = meta.Port
			conn.ClientID = meta.ClientID
			conn.ClientSecret = meta.ClientSecret
		}
	}

	s.publishFieldLocked(ScopeAccelerated, "reused_node")
	s.resetLocked(ScopeAccelerated)
}

// SelectBackend makes the named backend the scope's current choice and
// repairs the chosen preset: it becomes the first enhanced preset of the new
// backend, or nil when the backend has none. A GUID not present in the
// scope's list clears the selection.
func (s *State) SelectBackend(scope Scope, guid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectBackendLocked(scope, guid)
}

func (s *State) selectBackendLocked(scope Scope, guid string) {
	sel := s.selections[scope]
	sel.chosen = nil
	sel.chosenPreset = nil
	for _, b := range sel.backends {
		if b.GUID == guid {
			sel.chosen = b
			break
		}
	}
	if sel.chosen != nil {
		if enhanced := EnhancePresets(sel.chosen.Presets); len(enhanced) > 0 {
			sel.chosenPreset = &enhanced[0]
		}
	}

	if s.bus != nil {
		chosenGUID, presetName := "", ""
		if sel.chosen != nil {
			chosenGUID = sel.chosen.GUID
		}
		if sel.chosenPreset != nil {
			presetName = sel.chosenPreset.Name
		}
		s.bus.PublishSelectionChanged(string(scope), chosenGUID, presetName)
	}
}

// SelectPreset makes the named preset the scope's current choice. The preset
// must be a member of the chosen backend's enhanced list; unknown names fall
// back to the auto-repair default, the first preset.
func (s *State) SelectPreset(scope Scope, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := s.selections[scope]
	if sel.chosen == nil {
		return
	}
	enhanced := EnhancePresets(sel.chosen.Presets)
	sel.chosenPreset = nil
	for i := range enhanced {
		if enhanced[i].Name == name {
			sel.chosenPreset = &enhanced[i]
			break
		}
	}
	if sel.chosenPreset == nil && len(enhanced) > 0 {
		sel.chosenPreset = &enhanced[0]
	}

	if s.bus != nil {
		presetName := ""
		if sel.chosenPreset != nil {
			presetName = sel.chosenPreset.Name
		}
		s.bus.PublishSelectionChanged(string(scope), sel.chosen.GUID, presetName)
	}
}

// applyDiscoveryLocked replaces a scope's backend list with the retained
// candidates of a finished discovery. Entities are reused per GUID and
// refilled; the list is sorted by name and the first backend (with its first
// enhanced preset) becomes the selection, or the selection clears when
// nothing was retained.
func (s *State) applyDiscoveryLocked(scope Scope, details []*models.BackendDetail) {
	sel := s.selections[scope]

	backends := make([]*models.Backend, 0, len(details))
	availability := make(map[string]map[string]bool, len(details))
	for _, detail := range details {
		b, ok := sel.registry[detail.GUID]
		if !ok {
			b = models.NewBackend(detail.GUID)
			sel.registry[detail.GUID] = b
		}
		b.Fill(detail)
		backends = append(backends, b)

		presets := make(map[string]bool, len(detail.Presets))
		for _, p := range detail.Presets {
			available := false
			for _, status := range p.PolicyMetadata {
				if status.IsAvailable {
					available = true
					break
				}
			}
			presets[p.Name] = available
		}
		availability[detail.GUID] = presets
	}
	sort.Slice(backends, func(i, j int) bool { return backends[i].Name < backends[j].Name })

	sel.backends = backends
	sel.presetAvailability = availability
	sel.invalidInfo = false

	if len(backends) > 0 {
		s.selectBackendLocked(scope, backends[0].GUID)
	} else {
		sel.chosen = nil
		sel.chosenPreset = nil
	}
}

// markInvalidLocked records a failed discovery: the scope loses its list and
// selection and carries the invalid-info flag until the next attempt.
func (s *State) markInvalidLocked(scope Scope) {
	sel := s.selections[scope]
	sel.backends = nil
	sel.chosen = nil
	sel.chosenPreset = nil
	sel.presetAvailability = make(map[string]map[string]bool)
	sel.invalidInfo = true
}

// Name returns the pool name.
func (s *State) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// BackendType returns the backend-type filter.
func (s *State) BackendType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backendType
}

// Connection returns a copy of a scope's connection fields.
func (s *State) Connection(scope Scope) ConnectionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.connections[scope]
}

// connectionSnapshot returns a scope's connection fields together with its
// reset epoch, read under one lock. A discovery run uses the pair to detect
// that the fields it queried with are no longer the scope's current ones.
func (s *State) connectionSnapshot(scope Scope) (ConnectionInfo, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.connections[scope], s.selections[scope].epoch
}

// Backends returns a scope's discovered backend list.
func (s *State) Backends(scope Scope) []*models.Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Backend, len(s.selections[scope].backends))
	copy(out, s.selections[scope].backends)
	return out
}

// ChosenBackend returns a scope's chosen backend, nil when none is chosen.
func (s *State) ChosenBackend(scope Scope) *models.Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selections[scope].chosen
}

// ChosenPreset returns a scope's chosen preset, nil when none is chosen.
func (s *State) ChosenPreset(scope Scope) *EnhancedPreset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selections[scope].chosenPreset
}

// InvalidInfo reports whether the scope's last discovery failed.
func (s *State) InvalidInfo(scope Scope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selections[scope].invalidInfo
}

// PresetAvailable reports whether a preset of a discovered backend has at
// least one available policy. Unknown GUIDs and preset names report false.
func (s *State) PresetAvailable(scope Scope, guid, presetName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	presets, ok := s.selections[scope].presetAvailability[guid]
	if !ok {
		return false
	}
	return presets[presetName]
}

// SCOSize returns the SCO size in MiB.
func (s *State) SCOSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoSize
}

// WriteBuffer returns the write-buffer size in MiB.
func (s *State) WriteBuffer() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeBuffer
}

// WriteBufferMin returns the write-buffer lower bound derived from the
// current SCO size.
func (s *State) WriteBufferMin() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeBufferMin
}

// ReadCacheSize returns the read cache size in GiB.
func (s *State) ReadCacheSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readCacheSize
}

// WriteCacheSize returns the write cache size in GiB.
func (s *State) WriteCacheSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCacheSize
}

// CacheStrategy returns the cache strategy.
func (s *State) CacheStrategy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cacheStrategy
}

// DedupeMode returns the deduplication mode.
func (s *State) DedupeMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dedupeMode
}

// DTL returns the distributed transaction log mode and transport.
func (s *State) DTL() (mode, transport string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dtlMode, s.dtlTransport
}

// ClusterSize returns the cluster size in KiB.
func (s *State) ClusterSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clusterSize
}

// ReusedNode returns the reused storage node, nil when none is selected.
func (s *State) ReusedNode() *models.StorageNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reusedNode
}
