// Package progress renders discovery progress for CLI mode.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/openvstorage/vpool-wizard/internal/events"
)

// Reporter is the interface for reporting the progress of a discovery run.
type Reporter interface {
	Start(total int, description string)
	Update(current int)
	Finish()
	Error(err error)
}

// CLIProgress renders a progress bar on stderr. When stderr is not a
// terminal (piped output, CI) the bar is skipped and only errors print.
type CLIProgress struct {
	bar        *progressbar.ProgressBar
	isTerminal bool
}

// NewCLIProgress creates a CLI progress reporter.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{
		isTerminal: term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Start initializes the progress bar.
func (p *CLIProgress) Start(total int, description string) {
	if !p.isTerminal {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the progress bar to the current position.
func (p *CLIProgress) Update(current int) {
	if p.bar != nil {
		_ = p.bar.Set(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// Error displays an error message.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
}

// Watch drives a reporter from the discovery events of a bus until the
// channel closes. Run it in its own goroutine and close the bus (or
// unsubscribe) when discovery is done.
func Watch(ch <-chan events.Event, reporter Reporter) {
	started := false
	for event := range ch {
		discovery, ok := event.(*events.DiscoveryEvent)
		if !ok {
			continue
		}
		switch discovery.Type() {
		case events.EventDiscoveryProgress:
			if !started && discovery.Total > 0 {
				reporter.Start(discovery.Total, "Inspecting backends")
				started = true
			}
			reporter.Update(discovery.Done)
		case events.EventDiscoveryCompleted:
			if started {
				reporter.Finish()
			}
			return
		case events.EventDiscoveryFailed:
			if started {
				reporter.Finish()
			}
			reporter.Error(discovery.Error)
			return
		}
	}
}
