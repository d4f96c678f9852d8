package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/ffi-bridge/headers"
	"github.com/wippyai/ffi-bridge/internal/genconfig"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	previewStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserState int

const (
	stateList browserState = iota
	stateFilter
	statePreview
)

type browserModel struct {
	err      error
	backends []headers.Backend
	items    []headers.Item
	visible  []headers.Item
	preview  string
	opts     headers.Options
	filter   textinput.Model
	selected int
	lang     int
	state    browserState
}

func newBrowserModel(reg *headers.Registry, cfg *genconfig.Config) *browserModel {
	ti := textinput.New()
	ti.Placeholder = "name"
	ti.Prompt = "/"
	ti.Width = 40

	m := &browserModel{
		items:  reg.Items(),
		opts:   cfg.Options(),
		filter: ti,
		state:  stateList,
	}
	for _, lang := range cfg.Output.Langs {
		m.backends = append(m.backends, backendFor(lang))
	}
	m.applyFilter()
	return m
}

type renderedMsg struct {
	err  error
	text string
}

func (m *browserModel) Init() tea.Cmd {
	return nil
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			return m.updateFilter(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateList && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateList && m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateList {
				m.state = stateFilter
				m.filter.Focus()
				return m, textinput.Blink
			}

		case "tab":
			if len(m.backends) > 1 {
				m.lang = (m.lang + 1) % len(m.backends)
				if m.state == statePreview {
					return m, m.render
				}
			}

		case "enter":
			if m.state == stateList && len(m.visible) > 0 {
				return m, m.render
			}
			if m.state == statePreview {
				m.state = stateList
			}

		case "esc":
			if m.state == statePreview {
				m.state = stateList
			}
		}

	case renderedMsg:
		m.preview = msg.text
		m.err = msg.err
		m.state = statePreview
	}

	return m, nil
}

func (m *browserModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter", "esc":
		if msg.String() == "esc" {
			m.filter.SetValue("")
			m.applyFilter()
		}
		m.filter.Blur()
		m.state = stateList
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *browserModel) applyFilter() {
	q := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for _, it := range m.items {
		if q == "" || strings.Contains(strings.ToLower(it.Name), q) {
			m.visible = append(m.visible, it)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *browserModel) render() tea.Msg {
	text, err := headers.Render(m.visible[m.selected], m.backends[m.lang], m.opts)
	return renderedMsg{text: text, err: err}
}

func (m *browserModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ffigen"))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%d items • %s", len(m.items), m.backends[m.lang].Name()))
	b.WriteString("\n\n")

	switch m.state {
	case stateList, stateFilter:
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("no matching items"))
			b.WriteString("\n")
		}
		for i, it := range m.visible {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatItem(it)))
			} else {
				b.WriteString("  " + formatItem(it))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter preview • / filter • tab language • q quit"))

	case statePreview:
		it := m.visible[m.selected]
		b.WriteString(fmt.Sprintf("%s %s\n\n", kindStyle.Render(it.Kind.String()), nameStyle.Render(it.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(previewStyle.Render(m.preview))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("tab language • enter/esc back • q quit"))
	}

	return b.String()
}

func formatItem(it headers.Item) string {
	s := nameStyle.Render(it.Name) + " " + kindStyle.Render(it.Kind.String())
	if it.Doc != "" {
		s += " " + helpStyle.Render(it.Doc)
	}
	return s
}

func runBrowser(reg *headers.Registry, cfg *genconfig.Config) error {
	p := tea.NewProgram(newBrowserModel(reg, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
