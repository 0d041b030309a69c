// Package demo is a terminal counter that owns one scope for the lifetime of
// the program. Detaching saves the scope so a later run can resume it;
// quitting disposes of it.
package demo

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/phlux/internal/counter"
	"github.com/grovetools/phlux/pkg/persist"
	"github.com/grovetools/phlux/pkg/phlux"
)

// Options configures the demo.
type Options struct {
	Store *phlux.Store
	Codec *phlux.Codec
	Repo  persist.Repository
	// Resume names a saved scope to continue; empty starts a new one.
	Resume phlux.Key
	// TickDelayMS is the delay of the background increment.
	TickDelayMS int
}

// Outcome describes how the demo ended.
type Outcome struct {
	Key      phlux.Key
	Detached bool
}

type keyMap struct {
	Inc    key.Binding
	Dec    key.Binding
	Tick   key.Binding
	Drop   key.Binding
	Detach key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Inc, k.Dec, k.Tick, k.Drop, k.Detach, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Inc:    key.NewBinding(key.WithKeys("+", "up", "k"), key.WithHelp("+", "increment")),
	Dec:    key.NewBinding(key.WithKeys("-", "down", "j"), key.WithHelp("-", "decrement")),
	Tick:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tick later")),
	Drop:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "drop tick")),
	Detach: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "detach")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	countStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Padding(1, 2)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// mailbox hands the latest delivered state to the UI loop without ever
// blocking the store.
type mailbox struct {
	mu     sync.Mutex
	latest counter.State
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (b *mailbox) put(st counter.State) {
	b.mu.Lock()
	b.latest = st
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *mailbox) take() counter.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

type stateMsg counter.State

// Model is the bubbletea model of the demo.
type Model struct {
	handle *phlux.Handle[counter.State]
	codec  *phlux.Codec
	repo   persist.Repository
	delay  int

	box *mailbox
	sub phlux.Subscription

	state    counter.State
	tickBase int
	origin   string
	spinner  spinner.Model
	help     help.Model
	err      error
	outcome  Outcome
}

// New opens the scope described by opts and returns the model that owns it.
func New(ctx context.Context, opts Options) (Model, error) {
	m := Model{
		codec:   opts.Codec,
		repo:    opts.Repo,
		delay:   opts.TickDelayMS,
		box:     newMailbox(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
	}
	if m.delay <= 0 {
		m.delay = 1000
	}

	switch {
	case opts.Resume == "":
		m.handle = phlux.New(opts.Store, counter.State{})
		m.origin = "new"
	default:
		if h, err := phlux.Attach[counter.State](opts.Store, opts.Resume); err == nil {
			m.handle = h
			m.origin = "attached"
			break
		}
		bundle, err := persist.Load(ctx, opts.Repo, opts.Codec, opts.Resume)
		if err != nil {
			return Model{}, err
		}
		h, err := phlux.Restore[counter.State](opts.Store, opts.Codec, bundle)
		if err != nil {
			return Model{}, err
		}
		m.handle = h
		m.origin = "restored"
	}

	st, err := m.handle.State()
	if err != nil {
		return Model{}, err
	}
	m.state = st
	m.tickBase = st.Ticks
	m.outcome.Key = m.handle.Key()
	m.sub = m.handle.Register(m.box.put)
	return m, nil
}

// Key returns the scope key owned by the model.
func (m Model) Key() phlux.Key {
	return m.handle.Key()
}

// Outcome reports how the program ended.
func (m Model) Outcome() Outcome {
	return m.outcome
}

func (m Model) waitForState() tea.Cmd {
	box := m.box
	return func() tea.Msg {
		<-box.notify
		return stateMsg(box.take())
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForState())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = counter.State(msg)
		if m.state.Ticks > m.tickBase {
			// Completed ticks stay registered until their owner drops them.
			m.tickBase = m.state.Ticks
			m.handle.Drop(counter.TickID)
		}
		return m, m.waitForState()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Inc):
			m.handle.Apply(counter.Add(1))
		case key.Matches(msg, keys.Dec):
			m.handle.Apply(counter.Add(-1))
		case key.Matches(msg, keys.Tick):
			m.tickBase = m.state.Ticks
			m.handle.Background(counter.TickID, counter.Tick{DelayMS: m.delay, Step: 1})
		case key.Matches(msg, keys.Drop):
			m.handle.Drop(counter.TickID)
		case key.Matches(msg, keys.Detach):
			if err := m.detach(); err != nil {
				m.err = err
				return m, nil
			}
			m.outcome.Detached = true
			return m, tea.Quit
		case key.Matches(msg, keys.Quit):
			m.quit()
			return m, tea.Quit
		}
	}
	return m, nil
}

// detach saves the scope and stops observing it. The scope itself is left
// in the store.
func (m Model) detach() error {
	if err := persist.Save(context.Background(), m.repo, m.codec, m.handle); err != nil {
		return err
	}
	m.handle.Unregister(m.sub)
	return nil
}

// quit disposes of the scope and its saved copy.
func (m Model) quit() {
	m.handle.Unregister(m.sub)
	m.handle.Remove()
	_ = m.repo.Delete(context.Background(), m.handle.Key())
}

func (m Model) View() string {
	var b []string
	b = append(b, titleStyle.Render("phlux counter")+" "+mutedStyle.Render(fmt.Sprintf("%s (%s)", m.handle.Key(), m.origin)))
	b = append(b, countStyle.Render(fmt.Sprintf("%d", m.state.Count)))

	status := mutedStyle.Render(fmt.Sprintf("ticks completed: %d", m.state.Ticks))
	if m.handle.Running(counter.TickID) {
		status = m.spinner.View() + " tick pending  " + status
	}
	b = append(b, status)

	if m.err != nil {
		b = append(b, errStyle.Render(m.err.Error()))
	}
	b = append(b, "", m.help.View(keys))
	return lipgloss.JoinVertical(lipgloss.Left, b...) + "\n"
}

// Run starts the program and blocks until it exits.
func Run(ctx context.Context, opts Options, programOpts ...tea.ProgramOption) (Outcome, error) {
	m, err := New(ctx, opts)
	if err != nil {
		return Outcome{}, err
	}

	programOpts = append(programOpts, tea.WithContext(ctx))
	final, err := tea.NewProgram(m, programOpts...).Run()
	if err != nil {
		return Outcome{Key: m.Key()}, err
	}
	return final.(Model).Outcome(), nil
}
