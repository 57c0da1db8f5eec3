package dashboard

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joripage/lobsim/pkg/simulator"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type tickMsg time.Time

type mode int

const (
	modeWatch mode = iota
	modeOrder
	modeCancel
)

type model struct {
	sim    *simulator.Simulator
	gen    *simulator.Generator
	cfg    Config
	logger *zap.Logger

	snap   Snapshot
	paused bool
	err    error
	width  int

	mode   mode
	form   orderForm
	cancel cancelForm
	notice string
}

func newModel(sim *simulator.Simulator, gen *simulator.Generator, cfg Config, logger *zap.Logger) model {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := model{sim: sim, gen: gen, cfg: cfg, logger: logger, width: 120}
	m.snap = Capture(sim, gen, cfg)
	return m
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.cfg.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

// advance generates n events and refreshes the snapshot. A failed step pauses the run.
func (m model) advance(n int) model {
	for i := 0; i < n && m.err == nil; i++ {
		if _, err := m.gen.Step(); err != nil {
			m.err = err
			m.paused = true
			m.logger.Error("dashboard step failed", zap.Error(err))
		}
	}
	m.snap = Capture(m.sim, m.gen, m.cfg)
	m.snap.Paused = m.paused
	m.snap.Err = m.err
	return m
}

// submit places the order in the form against the live book.
func (m model) submit() model {
	qty, price, err := m.form.parse()
	if err != nil {
		m.notice = "rejected: " + err.Error()
		return m
	}
	o, trades, err := m.sim.Submit(m.form.side, m.form.typ, qty, price)
	if err != nil {
		m.notice = "rejected: " + err.Error()
		return m
	}
	switch {
	case len(trades) > 0:
		m.notice = fmt.Sprintf("order %d: %d trade(s), %s %s", o.ID, len(trades), o.Status(), o.Filled())
	case o.IsLive():
		m.notice = fmt.Sprintf("limit order %d resting @ %s", o.ID, o.Price.Decimal)
	default:
		m.notice = fmt.Sprintf("market order %d: no liquidity", o.ID)
	}
	m.mode = modeWatch
	return m.advance(0)
}

func (m model) cancelOrder() model {
	id, err := m.cancel.parse()
	if err != nil {
		m.notice = "rejected: " + err.Error()
		return m
	}
	if m.sim.Cancel(id) {
		m.notice = fmt.Sprintf("order %d cancelled", id)
	} else {
		m.notice = fmt.Sprintf("order %d is not live", id)
	}
	m.mode = modeWatch
	return m.advance(0)
}

// formKey handles keys while an input form is open. Only ctrl+c quits there.
func (m model) formKey(k string) (tea.Model, tea.Cmd) {
	switch k {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.mode = modeWatch
		m.notice = ""
		return m, nil
	case "enter":
		if m.mode == modeOrder {
			return m.submit(), nil
		}
		return m.cancelOrder(), nil
	}
	if m.mode == modeCancel {
		m.cancel = m.cancel.key(k)
		return m, nil
	}
	switch k {
	case "tab", "down":
		m.form = m.form.next()
	case "shift+tab", "up":
		m.form = m.form.prev()
	default:
		m.form = m.form.key(k)
	}
	return m, nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode != modeWatch {
			return m.formKey(msg.String())
		}
		switch msg.String() {
		case "o":
			m.mode = modeOrder
			m.form = newOrderForm()
			m.notice = ""
			return m, nil
		case "c":
			m.mode = modeCancel
			m.cancel = cancelForm{}
			m.notice = ""
			return m, nil
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "space":
			if m.err == nil {
				m.paused = !m.paused
			}
			m.snap.Paused = m.paused
			return m, nil
		case "s":
			return m.advance(1), nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		if !m.paused {
			m = m.advance(m.cfg.EventsPerTick)
		}
		return m, m.tick()
	}
	return m, nil
}

func (m model) View() string {
	snap := m.snap
	switch m.mode {
	case modeOrder:
		snap.Prompt = m.form.View()
	case modeCancel:
		snap.Prompt = m.cancel.View()
	}
	snap.Notice = m.notice
	return Render(snap, m.width)
}

// Run shows the live dashboard until the user quits or ctx is done.
func Run(ctx context.Context, sim *simulator.Simulator, cfg Config, logger *zap.Logger) error {
	if cfg.Refresh <= 0 || cfg.EventsPerTick <= 0 {
		return errors.Errorf("dashboard refresh and events per tick must be positive")
	}
	gen, err := sim.Generator()
	if err != nil {
		return errors.Wrap(err, "dashboard generator")
	}

	p := tea.NewProgram(newModel(sim, gen, cfg, logger), tea.WithContext(ctx), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "dashboard")
	}
	if fm, ok := final.(model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
