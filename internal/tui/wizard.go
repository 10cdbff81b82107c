// Package tui implements the interactive terminal wizard for pool creation.
package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/openvstorage/vpool-wizard/internal/config"
	"github.com/openvstorage/vpool-wizard/internal/constants"
	"github.com/openvstorage/vpool-wizard/internal/events"
	"github.com/openvstorage/vpool-wizard/internal/wizard"
)

// stepKind identifies what a wizard step shows.
type stepKind int

const (
	kindConnection stepKind = iota
	kindDiscover
	kindBackends
	kindPresets
	kindSizing
	kindConfirm
)

// stepDef is one entry of the wizard flow. The connection/discover/backend/
// preset steps run twice, once per scope.
type stepDef struct {
	kind  stepKind
	scope wizard.Scope
}

// flow is the fixed step sequence of the wizard.
var flow = []stepDef{
	{kindConnection, wizard.ScopePrimary},
	{kindDiscover, wizard.ScopePrimary},
	{kindBackends, wizard.ScopePrimary},
	{kindPresets, wizard.ScopePrimary},
	{kindConnection, wizard.ScopeAccelerated},
	{kindDiscover, wizard.ScopeAccelerated},
	{kindBackends, wizard.ScopeAccelerated},
	{kindPresets, wizard.ScopeAccelerated},
	{kindSizing, wizard.ScopePrimary},
	{kindConfirm, wizard.ScopePrimary},
}

// Connection step focus slots: the local/remote toggle plus four inputs.
const (
	connFocusToggle = iota
	connFocusHost
	connFocusPort
	connFocusClientID
	connFocusSecret
	connFocusCount
)

// Sizing step fields. Cycle fields step through a fixed value list with the
// left/right keys, input fields are free text.
const (
	sizeFieldName = iota
	sizeFieldSCO
	sizeFieldBuffer
	sizeFieldStrategy
	sizeFieldDTLMode
	sizeFieldCluster
	sizeFieldCount
)

// discoveryFinishedMsg reports a settled discovery run back to the model.
type discoveryFinishedMsg struct {
	scope wizard.Scope
	err   error
}

// model is the bubbletea model of the wizard.
type model struct {
	ctx        context.Context
	state      *wizard.State
	discoverer *wizard.Discoverer

	stepIdx int
	errMsg  string
	width   int

	// connection step
	connInputs [4]textinput.Model
	connFocus  int

	// discovery step
	spinner spinner.Model

	// backend / preset steps
	cursor int

	// sizing step
	nameInput   textinput.Model
	bufferInput textinput.Model
	sizeFocus   int
	scoIdx      int
	strategyIdx int
	dtlIdx      int
	clusterIdx  int

	finished bool
	styles   styles
}

func newModel(ctx context.Context, state *wizard.State, discoverer *wizard.Discoverer) model {
	m := model{
		ctx:        ctx,
		state:      state,
		discoverer: discoverer,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		styles:     defaultStyles(),
	}

	placeholders := [4]string{"10.100.10.2", "443", "client id", "client secret"}
	for i := range m.connInputs {
		input := textinput.New()
		input.Placeholder = placeholders[i]
		input.CharLimit = 64
		input.Width = 30
		m.connInputs[i] = input
	}
	m.connInputs[3].EchoMode = textinput.EchoPassword

	m.nameInput = textinput.New()
	m.nameInput.Placeholder = "pool name"
	m.nameInput.CharLimit = 22
	m.nameInput.Width = 30

	m.bufferInput = textinput.New()
	m.bufferInput.CharLimit = 5
	m.bufferInput.Width = 10
	m.bufferInput.SetValue(strconv.Itoa(state.WriteBuffer()))

	m.scoIdx = indexOf(constants.SCOSizes, state.SCOSize())
	m.clusterIdx = indexOf(constants.ClusterSizes, state.ClusterSize())
	m.strategyIdx = indexOfString(constants.CacheStrategies, state.CacheStrategy())
	mode, _ := state.DTL()
	m.dtlIdx = indexOfString(constants.DTLModes, mode)

	return m
}

func (m model) step() stepDef {
	return flow[m.stepIdx]
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// startDiscovery runs a discovery for the scope off the UI loop.
func (m model) startDiscovery(scope wizard.Scope) tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			err := m.discoverer.Discover(m.ctx, scope)
			return discoveryFinishedMsg{scope: scope, err: err}
		},
	)
}

// advance moves to the next step and runs its entry actions.
func (m model) advance() (model, tea.Cmd) {
	m.stepIdx++
	m.errMsg = ""
	m.cursor = 0

	switch m.step().kind {
	case kindDiscover:
		return m, m.startDiscovery(m.step().scope)
	case kindConnection:
		// The accelerated scope starts on the local installation too; the
		// inputs only matter after the user toggles to remote.
		for i := range m.connInputs {
			m.connInputs[i].SetValue("")
			m.connInputs[i].Blur()
		}
		m.connFocus = connFocusToggle
	case kindSizing:
		m.nameInput.Focus()
		m.sizeFocus = sizeFieldName
	}
	return m, nil
}

// retreat steps back to the previous interactive step, skipping discovery.
func (m model) retreat() model {
	if m.stepIdx == 0 {
		return m
	}
	m.stepIdx--
	if m.step().kind == kindDiscover {
		m.stepIdx--
	}
	m.errMsg = ""
	m.cursor = 0
	return m
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.step().kind == kindDiscover {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case discoveryFinishedMsg:
		// Late completions of a superseded run carry a stale scope.
		if m.step().kind != kindDiscover || m.step().scope != msg.scope {
			return m, nil
		}
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Discovery failed: %v", msg.err)
			m = m.retreat()
			return m, nil
		}
		return m.advance()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.updateKey(msg)
	}

	return m, nil
}

func (m model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.step().kind {
	case kindConnection:
		return m.updateConnection(msg)
	case kindDiscover:
		if msg.String() == "esc" {
			m.discoverer.Cancel(m.step().scope)
			m = m.retreat()
		}
		return m, nil
	case kindBackends:
		return m.updateBackends(msg)
	case kindPresets:
		return m.updatePresets(msg)
	case kindSizing:
		return m.updateSizing(msg)
	case kindConfirm:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m model) updateConnection(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	scope := m.step().scope
	useLocal := m.state.Connection(scope).UseLocal

	switch msg.String() {
	case "esc":
		m = m.retreat()
		return m, nil

	case "up", "shift+tab":
		m.connFocus--
		if m.connFocus < connFocusToggle {
			m.connFocus = connFocusToggle
		}
	case "down", "tab":
		if !useLocal {
			m.connFocus++
			if m.connFocus >= connFocusCount {
				m.connFocus = connFocusCount - 1
			}
		}

	case " ":
		if m.connFocus == connFocusToggle {
			m.state.SetUseLocal(scope, !useLocal)
			return m, nil
		}

	case "enter":
		if err := m.commitConnection(scope); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		status := m.state.ConnectionStep(scope)
		if !status.Value {
			m.errMsg = status.Reasons[0]
			return m, nil
		}
		return m.advance()
	}

	for i := range m.connInputs {
		if i+1 == m.connFocus && !useLocal {
			m.connInputs[i].Focus()
		} else {
			m.connInputs[i].Blur()
		}
	}

	var cmd tea.Cmd
	if m.connFocus > connFocusToggle && !useLocal {
		idx := m.connFocus - 1
		m.connInputs[idx], cmd = m.connInputs[idx].Update(msg)
	}
	return m, cmd
}

// commitConnection copies the connection inputs into the state.
func (m *model) commitConnection(scope wizard.Scope) error {
	if m.state.Connection(scope).UseLocal {
		return nil
	}

	port := constants.DefaultAPIPort
	if raw := m.connInputs[1].Value(); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid port %q", raw)
		}
		port = parsed
	}
	m.state.SetHost(scope, m.connInputs[0].Value())
	m.state.SetPort(scope, port)
	m.state.SetClientID(scope, m.connInputs[2].Value())
	m.state.SetClientSecret(scope, m.connInputs[3].Value())
	return nil
}

func (m model) updateBackends(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	scope := m.step().scope
	backends := m.state.Backends(scope)

	switch msg.String() {
	case "esc":
		m = m.retreat()
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(backends)-1 {
			m.cursor++
		}
	case "r":
		m.stepIdx-- // back onto the discover step
		return m, m.startDiscovery(scope)
	case "s":
		// The accelerated tier is optional; skip both it and its presets.
		if scope == wizard.ScopeAccelerated {
			m.stepIdx++
			return m.advance()
		}
	case "enter":
		if len(backends) == 0 {
			m.errMsg = "no eligible backends - press esc to change the connection or r to retry"
			return m, nil
		}
		m.state.SelectBackend(scope, backends[m.cursor].GUID)
		return m.advance()
	}
	return m, nil
}

func (m model) updatePresets(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	scope := m.step().scope
	backend := m.state.ChosenBackend(scope)
	var presets []wizard.EnhancedPreset
	if backend != nil {
		presets = wizard.EnhancePresets(backend.Presets)
	}

	switch msg.String() {
	case "esc":
		m = m.retreat()
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(presets)-1 {
			m.cursor++
		}
	case "enter":
		if len(presets) == 0 {
			m.errMsg = "the selected backend has no presets"
			return m, nil
		}
		m.state.SelectPreset(scope, presets[m.cursor].Name)
		status := m.state.BackendStep(scope)
		if !status.Value {
			m.errMsg = status.Reasons[0]
			return m, nil
		}
		return m.advance()
	}
	return m, nil
}

func (m model) updateSizing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m = m.retreat()
		return m, nil

	case "up", "shift+tab":
		if m.sizeFocus > 0 {
			m.sizeFocus--
		}
	case "down", "tab":
		if m.sizeFocus < sizeFieldCount-1 {
			m.sizeFocus++
		}

	case "left":
		m.cycleSizing(-1)
		return m, nil
	case "right":
		m.cycleSizing(1)
		return m, nil

	case "enter":
		if err := m.commitSizing(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		status := m.state.SizingStep()
		if !status.Value {
			m.errMsg = status.Reasons[0]
			return m, nil
		}
		return m.advance()
	}

	if m.sizeFocus == sizeFieldName {
		m.nameInput.Focus()
	} else {
		m.nameInput.Blur()
	}
	if m.sizeFocus == sizeFieldBuffer {
		m.bufferInput.Focus()
	} else {
		m.bufferInput.Blur()
	}

	var cmd tea.Cmd
	switch m.sizeFocus {
	case sizeFieldName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case sizeFieldBuffer:
		m.bufferInput, cmd = m.bufferInput.Update(msg)
	}
	return m, cmd
}

// cycleSizing steps the focused cycle field through its value list.
func (m *model) cycleSizing(direction int) {
	switch m.sizeFocus {
	case sizeFieldSCO:
		m.scoIdx = cycle(m.scoIdx, direction, len(constants.SCOSizes))
		m.state.SetSCOSize(constants.SCOSizes[m.scoIdx])
		// The SCO change may have moved the write-buffer floor.
		m.bufferInput.SetValue(strconv.Itoa(m.state.WriteBuffer()))
	case sizeFieldStrategy:
		m.strategyIdx = cycle(m.strategyIdx, direction, len(constants.CacheStrategies))
		m.state.SetCacheStrategy(constants.CacheStrategies[m.strategyIdx])
	case sizeFieldDTLMode:
		m.dtlIdx = cycle(m.dtlIdx, direction, len(constants.DTLModes))
		_, transport := m.state.DTL()
		m.state.SetDTL(constants.DTLModes[m.dtlIdx], transport)
	case sizeFieldCluster:
		m.clusterIdx = cycle(m.clusterIdx, direction, len(constants.ClusterSizes))
		m.state.SetClusterSize(constants.ClusterSizes[m.clusterIdx])
	}
}

// commitSizing copies the sizing inputs into the state.
func (m *model) commitSizing() error {
	m.state.SetName(m.nameInput.Value())

	raw := m.bufferInput.Value()
	buffer, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid write buffer %q", raw)
	}
	m.state.SetWriteBuffer(buffer)
	return nil
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m = m.retreat()
		return m, nil
	case "enter":
		status := m.state.ConfirmStep()
		if !status.Value {
			m.errMsg = status.Reasons[0]
			return m, nil
		}
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func indexOf(values []int, v int) int {
	for i, candidate := range values {
		if candidate == v {
			return i
		}
	}
	return 0
}

func indexOfString(values []string, v string) int {
	for i, candidate := range values {
		if candidate == v {
			return i
		}
	}
	return 0
}

func cycle(idx, direction, length int) int {
	idx += direction
	if idx < 0 {
		return length - 1
	}
	if idx >= length {
		return 0
	}
	return idx
}

// Run starts the interactive wizard and prints the resulting selection when
// the user confirms it.
func Run(ctx context.Context, cfg *config.Config, client wizard.BackendClient) error {
	bus := events.NewBus(0)
	defer bus.Close()

	state := wizard.NewState(bus)
	state.ApplyDefaults(cfg.Defaults)

	discoverer := wizard.NewDiscoverer(state, client, bus)
	m := newModel(ctx, state, discoverer)

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return err
	}

	result, ok := final.(model)
	if !ok || !result.finished {
		fmt.Println("Wizard cancelled.")
		return nil
	}

	printSummary(state)
	return nil
}
