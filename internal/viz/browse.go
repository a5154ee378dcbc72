package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/climemu/internal/emission"
	"github.com/san-kum/climemu/internal/params"
	"github.com/san-kum/climemu/internal/sim"
)

// BrowserOptions configures the interactive model browser.
type BrowserOptions struct {
	Models   []string // defaults to every model the provider knows
	Pathways []string // defaults to emission.ListPresets()
	Theme    string
	Runner   []sim.Option
}

// Browser is a Bubble Tea model that re-runs the emulator whenever the
// selected calibration or emission pathway changes.
type Browser struct {
	runner   *sim.Runner
	models   []string
	pathways []string
	cursor   int
	pathway  int

	overlay   bool
	showOcean bool
	theme     Theme

	res      *sim.Result
	ensemble map[string]sim.Temperatures
	err      error

	width, height int
}

// NewBrowser builds the runner for the first model and pathway and runs it.
func NewBrowser(provider params.Provider, opts BrowserOptions) (*Browser, error) {
	b := &Browser{
		models:    opts.Models,
		pathways:  opts.Pathways,
		showOcean: true,
		theme:     GetTheme(opts.Theme),
		width:     100,
		height:    30,
	}
	if len(b.models) == 0 {
		b.models = provider.Models()
	}
	if len(b.pathways) == 0 {
		b.pathways = emission.ListPresets()
	}
	if len(b.models) == 0 {
		return nil, fmt.Errorf("browse: no models to show")
	}

	series, err := pathwaySeries(b.pathways[0])
	if err != nil {
		return nil, err
	}
	runnerOpts := append(append([]sim.Option(nil), opts.Runner...),
		sim.WithModel(b.models[0]),
		sim.WithStartYear(series.Years[0]),
	)
	b.runner, err = sim.NewRunner(provider, series.Values, runnerOpts...)
	if err != nil {
		return nil, err
	}
	b.rerun()
	return b, nil
}

func (b *Browser) Init() tea.Cmd { return nil }

func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return b, tea.Quit
		case "down", "j":
			if b.cursor < len(b.models)-1 {
				b.cursor++
				b.switchModel()
			}
		case "up", "k":
			if b.cursor > 0 {
				b.cursor--
				b.switchModel()
			}
		case "right", "l":
			b.pathway = (b.pathway + 1) % len(b.pathways)
			b.switchPathway()
		case "left", "h":
			b.pathway = (b.pathway - 1 + len(b.pathways)) % len(b.pathways)
			b.switchPathway()
		case "a":
			b.overlay = !b.overlay
			b.rerun()
		case "o":
			b.showOcean = !b.showOcean
		case "t":
			b.theme = nextTheme(b.theme)
		}
	}
	return b, nil
}

// Selected returns the highlighted model and pathway.
func (b *Browser) Selected() (model, pathway string) {
	return b.models[b.cursor], b.pathways[b.pathway]
}

// Err is the error of the last action, if it failed.
func (b *Browser) Err() error { return b.err }

// Result is the most recent successful run of the active model.
func (b *Browser) Result() *sim.Result { return b.res }

func (b *Browser) switchModel() {
	name := b.models[b.cursor]
	if _, _, err := b.runner.SwitchModel(name); err != nil {
		b.err = err
		b.cursor = b.indexOf(b.runner.Model())
		return
	}
	b.err = nil
	b.res = b.runner.Result()
	if b.overlay {
		b.runOverlay()
	}
}

func (b *Browser) indexOf(model string) int {
	for i, name := range b.models {
		if name == model {
			return i
		}
	}
	return 0
}

func (b *Browser) switchPathway() {
	series, err := pathwaySeries(b.pathways[b.pathway])
	if err != nil {
		b.err = err
		return
	}
	b.runner.SetEmissions(series.Values)
	b.rerun()
}

func (b *Browser) rerun() {
	if _, _, err := b.runner.Run(); err != nil {
		b.err = err
		return
	}
	b.err = nil
	b.res = b.runner.Result()
	if b.overlay {
		b.runOverlay()
	}
}

func (b *Browser) runOverlay() {
	runs, err := b.runner.RunMany(b.models)
	if err != nil {
		b.err = err
		b.ensemble = nil
		return
	}
	b.ensemble = runs
}

func (b *Browser) View() string {
	var s strings.Builder
	model, pathway := b.Selected()

	s.WriteString("\n  " + Title.Foreground(b.theme.Primary).Render("CLIMEMU") + "  " +
		Subtle.Render(fmt.Sprintf("pathway %s  ·  theme %s", pathway, b.theme.Name)) + "\n\n")

	for i, name := range b.models {
		if i == b.cursor {
			s.WriteString("  " + Title.Foreground(b.theme.Secondary).Render("▸ ") + Selected.Render(name) + "\n")
		} else {
			s.WriteString("    " + Subtle.Render(name) + "\n")
		}
	}
	s.WriteString("\n")

	if b.err != nil {
		s.WriteString("  " + ErrorText.Render(b.err.Error()) + "\n\n")
	}

	width := max(b.width-20, 30)
	height := max(b.height/3, 8)
	lo, hi := b.runner.TatmRange()
	lower, upper := RangeBounds(lo, hi)
	opts := PlotOptions{Width: width, Height: height, Lower: lower, Upper: upper, Theme: b.theme}

	switch {
	case b.overlay && b.ensemble != nil:
		s.WriteString(PlotEnsemble(b.ensemble, opts))
	case b.res != nil && b.showOcean:
		s.WriteString(PlotTemperatures(b.res, opts))
	case b.res != nil:
		opts.Caption = fmt.Sprintf("%s atmospheric anomaly (°C)", model)
		s.WriteString(PlotSeries(b.res.Tatm, opts))
	}
	s.WriteString("\n\n")

	if b.res != nil {
		s.WriteString(RenderSummary(b.res) + "\n")
	}
	s.WriteString(KeyHint.Render("  j/k model  h/l pathway  a overlay  o ocean  t theme  q quit") + "\n")
	return s.String()
}

// RunBrowser starts the interactive browser on the alternate screen.
func RunBrowser(provider params.Provider, opts BrowserOptions) error {
	b, err := NewBrowser(provider, opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(b, tea.WithAltScreen()).Run()
	return err
}

func pathwaySeries(name string) (emission.Series, error) {
	sc, ok := emission.Preset(name)
	if !ok {
		return emission.Series{}, fmt.Errorf("browse: unknown pathway %q", name)
	}
	return sc.Series()
}
