package wizard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/openvstorage/vpool-wizard/internal/api"
	"github.com/openvstorage/vpool-wizard/internal/events"
	"github.com/openvstorage/vpool-wizard/internal/logging"
	"github.com/openvstorage/vpool-wizard/internal/models"
)

// BackendClient is the slice of the management API the discoverer consumes.
type BackendClient interface {
	ListBackends(ctx context.Context, backendType string, conn api.ConnectionParams) ([]models.BackendListEntry, error)
	GetBackendDetail(ctx context.Context, guid string, conn api.ConnectionParams) (*models.BackendDetail, error)
}

// Discoverer retrieves the eligible backend candidates for a scope and
// merges them into the wizard state.
//
// At most one discovery is in flight per scope: starting a new one cancels
// the previous run's context and bumps the scope's generation counter. A
// run only applies its outcome - success or failure - while its generation
// is still current, so a superseded run's late results are always dropped,
// even when the transport never noticed the cancellation. A run also
// captures the scope's reset epoch with the connection fields it queries
// with; a connection-parameter change mid-flight bumps the epoch and the
// run's outcome is dropped the same way.
type Discoverer struct {
	state  *State
	client BackendClient
	bus    *events.Bus

	mu         sync.Mutex
	generation map[Scope]uint64
	cancel     map[Scope]context.CancelFunc
}

// NewDiscoverer creates a discoverer writing into the given state.
func NewDiscoverer(state *State, client BackendClient, bus *events.Bus) *Discoverer {
	return &Discoverer{
		state:      state,
		client:     client,
		bus:        bus,
		generation: make(map[Scope]uint64),
		cancel:     make(map[Scope]context.CancelFunc),
	}
}

// begin supersedes any in-flight run for the scope and registers a new one.
func (d *Discoverer) begin(ctx context.Context, scope Scope) (context.Context, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cancel, ok := d.cancel[scope]; ok {
		cancel()
	}
	d.generation[scope]++
	gen := d.generation[scope]

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel[scope] = cancel
	return runCtx, gen
}

// current reports whether a run's generation is still the scope's latest.
func (d *Discoverer) current(scope Scope, gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generation[scope] == gen
}

// Cancel aborts the in-flight discovery for a scope, if any. The aborted
// run's outcome is discarded; the scope's state is left as it was.
func (d *Discoverer) Cancel(scope Scope) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cancel, ok := d.cancel[scope]; ok {
		cancel()
		delete(d.cancel, scope)
		d.generation[scope]++
	}
}

// releaseLocked frees a settled run's cancel func. Callers hold d.mu.
func (d *Discoverer) releaseLocked(scope Scope) {
	if cancel, ok := d.cancel[scope]; ok {
		cancel()
		delete(d.cancel, scope)
	}
}

// Discover runs one full discovery for a scope: list the backends of the
// scope's installation, fetch every available entry's detail in parallel,
// retain the eligible candidates and merge them into the state.
//
// A candidate is retained when its detail reports it available, it has at
// least one capacity unit attached and - for the accelerated scope - it is
// not the backend already chosen as the pool's primary.
//
// The call blocks until the run settles. It returns nil on success, when the
// run was superseded by a newer one, and when the scope reset mid-flight (a
// connection-field change); a transport failure is returned after the scope
// was marked invalid.
func (d *Discoverer) Discover(ctx context.Context, scope Scope) error {
	runCtx, gen := d.begin(ctx, scope)

	conn, epoch := d.state.connectionSnapshot(scope)
	params := api.ConnectionParams{
		UseLocal:     conn.UseLocal,
		Host:         conn.Host,
		Port:         conn.Port,
		ClientID:     conn.ClientID,
		ClientSecret: conn.ClientSecret,
	}
	backendType := d.state.BackendType()

	logging.Debugf("discovery %s gen=%d: listing %s backends", scope, gen, backendType)
	if d.bus != nil {
		d.bus.PublishDiscovery(events.EventDiscoveryStarted, string(scope), gen, 0, 0, nil)
	}

	entries, err := d.client.ListBackends(runCtx, backendType, params)
	if err != nil {
		return d.fail(scope, gen, epoch, fmt.Errorf("backend list failed: %w", err))
	}

	candidates := make([]models.BackendListEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Available {
			candidates = append(candidates, entry)
		}
	}

	details := make([]*models.BackendDetail, len(candidates))
	var done atomic.Int64

	g, fanCtx := errgroup.WithContext(runCtx)
	for i, entry := range candidates {
		g.Go(func() error {
			detail, err := d.client.GetBackendDetail(fanCtx, entry.LinkedGUID, params)
			if err != nil {
				return fmt.Errorf("backend %s detail failed: %w", entry.LinkedGUID, err)
			}
			details[i] = detail

			if d.bus != nil {
				d.bus.PublishDiscovery(events.EventDiscoveryProgress, string(scope), gen,
					int(done.Add(1)), len(candidates), nil)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return d.fail(scope, gen, epoch, err)
	}

	var primaryGUID string
	if scope == ScopeAccelerated {
		if primary := d.state.ChosenBackend(ScopePrimary); primary != nil {
			primaryGUID = primary.GUID
		}
	}

	retained := make([]*models.BackendDetail, 0, len(details))
	for _, detail := range details {
		if !detail.Available {
			continue
		}
		if primaryGUID != "" && detail.GUID == primaryGUID {
			continue
		}
		if len(detail.ASDStatistics) == 0 {
			continue
		}
		retained = append(retained, detail)
	}

	// The generation/epoch checks and the merge happen under one lock so
	// neither a newer run nor a scope reset can slip in between them.
	d.mu.Lock()
	if d.generation[scope] != gen {
		d.mu.Unlock()
		logging.Debugf("discovery %s gen=%d: superseded, dropping %d candidates", scope, gen, len(retained))
		return nil
	}
	d.state.mu.Lock()
	if d.state.selections[scope].epoch != epoch {
		d.state.mu.Unlock()
		d.releaseLocked(scope)
		d.mu.Unlock()
		logging.Debugf("discovery %s gen=%d: scope reset mid-flight, dropping %d candidates", scope, gen, len(retained))
		return nil
	}
	d.state.applyDiscoveryLocked(scope, retained)
	d.state.mu.Unlock()
	d.releaseLocked(scope)
	d.mu.Unlock()

	logging.Debugf("discovery %s gen=%d: retained %d of %d candidates", scope, gen, len(retained), len(candidates))
	if d.bus != nil {
		d.bus.PublishDiscovery(events.EventDiscoveryCompleted, string(scope), gen, len(candidates), len(candidates), nil)
	}
	return nil
}

// fail records a failed run: if the run is still current, the scope's list
// and selection clear and its invalid-info flag raises. A superseded run's
// failure (typically context cancellation) is dropped silently, as is the
// failure of a run whose scope reset mid-flight - the reset already left
// the scope in a clean, not-yet-discovered state.
func (d *Discoverer) fail(scope Scope, gen, epoch uint64, err error) error {
	d.mu.Lock()
	if d.generation[scope] != gen {
		d.mu.Unlock()
		return nil
	}
	d.state.mu.Lock()
	if d.state.selections[scope].epoch != epoch {
		d.state.mu.Unlock()
		d.releaseLocked(scope)
		d.mu.Unlock()
		logging.Debugf("discovery %s gen=%d: scope reset mid-flight, dropping failure: %v", scope, gen, err)
		return nil
	}
	d.state.markInvalidLocked(scope)
	d.state.mu.Unlock()
	d.releaseLocked(scope)
	d.mu.Unlock()

	logging.Debugf("discovery %s gen=%d: failed: %v", scope, gen, err)
	if d.bus != nil {
		d.bus.PublishDiscovery(events.EventDiscoveryFailed, string(scope), gen, 0, 0, err)
	}
	return err
}
