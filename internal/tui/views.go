package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/openvstorage/vpool-wizard/internal/constants"
	"github.com/openvstorage/vpool-wizard/internal/wizard"
)

// styles holds the lipgloss styles of the wizard views.
type styles struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	cursor   lipgloss.Style
	dim      lipgloss.Style
	err      lipgloss.Style
	help     lipgloss.Style
	green    lipgloss.Style
	black    lipgloss.Style
	grey     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		cursor:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")),
		dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		help:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		green:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		black:    lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		grey:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// colorStyle maps a preset colour to its display style.
func (s styles) colorStyle(c wizard.PresetColor) lipgloss.Style {
	switch c {
	case wizard.ColorGreen:
		return s.green
	case wizard.ColorBlack:
		return s.black
	default:
		return s.grey
	}
}

func scopeTitle(scope wizard.Scope) string {
	if scope == wizard.ScopeAccelerated {
		return "Accelerated (cache-tier) backend"
	}
	return "Primary backend"
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("vPool Creation Wizard"))
	b.WriteString("\n\n")

	switch m.step().kind {
	case kindConnection:
		b.WriteString(m.viewConnection())
	case kindDiscover:
		b.WriteString(m.viewDiscover())
	case kindBackends:
		b.WriteString(m.viewBackends())
	case kindPresets:
		b.WriteString(m.viewPresets())
	case kindSizing:
		b.WriteString(m.viewSizing())
	case kindConfirm:
		b.WriteString(m.viewConfirm())
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.err.Render(m.errMsg))
		b.WriteString("\n")
	}

	return b.String()
}

func (m model) viewConnection() string {
	scope := m.step().scope
	useLocal := m.state.Connection(scope).UseLocal

	var b strings.Builder
	b.WriteString(m.styles.subtitle.Render(scopeTitle(scope) + " - connection"))
	b.WriteString("\n\n")

	toggle := "[x] use the local installation"
	if !useLocal {
		toggle = "[ ] use the local installation"
	}
	if m.connFocus == connFocusToggle {
		b.WriteString(m.styles.cursor.Render("> " + toggle))
	} else {
		b.WriteString("  " + toggle)
	}
	b.WriteString("\n\n")

	if useLocal {
		b.WriteString(m.styles.dim.Render("  host, port and credentials come from the wizardconfig"))
		b.WriteString("\n")
	} else {
		labels := [4]string{"Host", "Port", "Client id", "Client secret"}
		for i, label := range labels {
			prefix := "  "
			if m.connFocus == i+1 {
				prefix = m.styles.cursor.Render("> ")
			}
			b.WriteString(fmt.Sprintf("%s%-14s %s\n", prefix, label, m.connInputs[i].View()))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.styles.help.Render("tab/↑↓ move · space toggle · enter continue · esc back · ctrl+c quit"))
	b.WriteString("\n")
	return b.String()
}

func (m model) viewDiscover() string {
	var b strings.Builder
	b.WriteString(m.styles.subtitle.Render(scopeTitle(m.step().scope) + " - discovery"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s Discovering backends...\n\n", m.spinner.View()))
	b.WriteString(m.styles.help.Render("esc cancel"))
	b.WriteString("\n")
	return b.String()
}

func (m model) viewBackends() string {
	scope := m.step().scope
	backends := m.state.Backends(scope)

	var b strings.Builder
	b.WriteString(m.styles.subtitle.Render(scopeTitle(scope) + " - select a backend"))
	b.WriteString("\n\n")

	if len(backends) == 0 {
		b.WriteString(m.styles.dim.Render("  no eligible backends found"))
		b.WriteString("\n")
	}
	for i, backend := range backends {
		line := fmt.Sprintf("%-24s %s", backend.Name, m.styles.dim.Render(backend.GUID))
		if i == m.cursor {
			b.WriteString(m.styles.cursor.Render("> ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n")
	help := "↑↓ move · enter select · r rediscover · esc back"
	if scope == wizard.ScopeAccelerated {
		help += " · s skip tier"
	}
	b.WriteString(m.styles.help.Render(help))
	b.WriteString("\n")
	return b.String()
}

func (m model) viewPresets() string {
	scope := m.step().scope
	backend := m.state.ChosenBackend(scope)

	var b strings.Builder
	b.WriteString(m.styles.subtitle.Render(scopeTitle(scope) + " - select a preset"))
	b.WriteString("\n\n")

	if backend == nil {
		b.WriteString(m.styles.dim.Render("  no backend selected"))
		b.WriteString("\n")
		return b.String()
	}

	presets := wizard.EnhancePresets(backend.Presets)
	for i, preset := range presets {
		style := m.styles.colorStyle(preset.Color)
		detail := make([]string, 0, 3)
		if preset.ReplicationFactor > 0 {
			detail = append(detail, fmt.Sprintf("%dx replication", preset.ReplicationFactor))
		}
		if preset.InUse {
			detail = append(detail, "in use")
		}
		if preset.IsDefault {
			detail = append(detail, "default")
		}

		line := style.Render(fmt.Sprintf("%-20s", preset.Name))
		if len(detail) > 0 {
			line += " " + m.styles.dim.Render(strings.Join(detail, ", "))
		}
		if i == m.cursor {
			b.WriteString(m.styles.cursor.Render("> ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.styles.help.Render("↑↓ move · enter select · esc back"))
	b.WriteString("\n")
	return b.String()
}

func (m model) viewSizing() string {
	var b strings.Builder
	b.WriteString(m.styles.subtitle.Render("Pool sizing"))
	b.WriteString("\n\n")

	mode, _ := m.state.DTL()
	rows := []struct {
		field int
		label string
		value string
	}{
		{sizeFieldName, "Name", m.nameInput.View()},
		{sizeFieldSCO, "SCO size", fmt.Sprintf("< %d MiB >", constants.SCOSizes[m.scoIdx])},
		{sizeFieldBuffer, "Write buffer", m.bufferInput.View() + m.styles.dim.Render(fmt.Sprintf("  (min %d MiB)", m.state.WriteBufferMin()))},
		{sizeFieldStrategy, "Cache strategy", fmt.Sprintf("< %s >", constants.CacheStrategies[m.strategyIdx])},
		{sizeFieldDTLMode, "DTL mode", fmt.Sprintf("< %s >", mode)},
		{sizeFieldCluster, "Cluster size", fmt.Sprintf("< %d KiB >", constants.ClusterSizes[m.clusterIdx])},
	}

	for _, row := range rows {
		prefix := "  "
		if m.sizeFocus == row.field {
			prefix = m.styles.cursor.Render("> ")
		}
		b.WriteString(fmt.Sprintf("%s%-16s %s\n", prefix, row.label, row.value))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.help.Render("↑↓ move · ←→ cycle values · enter continue · esc back"))
	b.WriteString("\n")
	return b.String()
}

func (m model) viewConfirm() string {
	var b strings.Builder
	b.WriteString(m.styles.subtitle.Render("Confirm"))
	b.WriteString("\n\n")
	b.WriteString(summaryText(m.state))

	status := m.state.ConfirmStep()
	if !status.Value {
		b.WriteString("\n")
		for _, reason := range status.Reasons {
			b.WriteString(m.styles.err.Render("  ! " + reason))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.styles.help.Render("enter confirm · esc back"))
	b.WriteString("\n")
	return b.String()
}

// summaryText renders the final selection, shared by the confirm view and
// the post-run summary.
func summaryText(state *wizard.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "  Pool name:      %s\n", state.Name())
	fmt.Fprintf(&b, "  Backend type:   %s\n", state.BackendType())

	if backend := state.ChosenBackend(wizard.ScopePrimary); backend != nil {
		fmt.Fprintf(&b, "  Backend:        %s (%s)\n", backend.Name, backend.GUID)
	}
	if preset := state.ChosenPreset(wizard.ScopePrimary); preset != nil {
		fmt.Fprintf(&b, "  Preset:         %s\n", preset.Name)
	}
	if backend := state.ChosenBackend(wizard.ScopeAccelerated); backend != nil {
		fmt.Fprintf(&b, "  Cache backend:  %s (%s)\n", backend.Name, backend.GUID)
		if preset := state.ChosenPreset(wizard.ScopeAccelerated); preset != nil {
			fmt.Fprintf(&b, "  Cache preset:   %s\n", preset.Name)
		}
	}

	mode, transport := state.DTL()
	fmt.Fprintf(&b, "  SCO size:       %d MiB\n", state.SCOSize())
	fmt.Fprintf(&b, "  Write buffer:   %d MiB\n", state.WriteBuffer())
	fmt.Fprintf(&b, "  Cache strategy: %s\n", state.CacheStrategy())
	fmt.Fprintf(&b, "  DTL:            %s over %s\n", mode, transport)
	fmt.Fprintf(&b, "  Cluster size:   %d KiB\n", state.ClusterSize())

	return b.String()
}

// printSummary prints the confirmed selection after the program exits the
// alternate screen.
func printSummary(state *wizard.State) {
	fmt.Println("Pool configuration confirmed:")
	fmt.Println()
	fmt.Print(summaryText(state))
}
