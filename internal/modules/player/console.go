package player

import (
	"fmt"

	"github.com/pterm/pterm"
)

// Console is the local terminal surface for operator feedback: the
// pairing code panel and cache warm-up progress. Tests use a fake.
type Console interface {
	ShowPairing(code string)
	Progress(done int, total int)
}

// TermConsole renders with pterm.
type TermConsole struct {
	bar *pterm.ProgressbarPrinter
}

// ShowPairing prints the pairing code panel.
func (c *TermConsole) ShowPairing(code string) {
	pterm.DefaultBox.
		WithTitle("Pair this screen").
		WithTitleTopCenter().
		Println(fmt.Sprintf("Enter code %s in the dashboard", code))
}

// Progress renders the cache warm-up bar; it finishes when done reaches
// total.
func (c *TermConsole) Progress(done int, total int) {
	if c.bar == nil {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Caching media").
			Start()
		if err != nil {
			return
		}
		c.bar = bar
	}
	if delta := done - c.bar.Current; delta > 0 {
		c.bar.Add(delta)
	}
	if done >= total {
		_, _ = c.bar.Stop()
		c.bar = nil
	}
}

// NopConsole discards all output.
type NopConsole struct{}

func (NopConsole) ShowPairing(string) {}
func (NopConsole) Progress(int, int)  {}
