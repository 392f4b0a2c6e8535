package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/filaform/filatag/detect"
	"github.com/filaform/filatag/types"
)

// maxEventLines is how many event log lines the dashboard keeps.
const maxEventLines = 12

// EventMsg carries a detection event into the watch model.
type EventMsg struct {
	Envelope *types.EventEnvelope
}

// WatchModel is a Bubble Tea model for the live detection dashboard.
type WatchModel struct {
	sku       string
	sessionID string

	state   types.DetectionState
	ordinal int

	tagStatus      [3]types.TagStatus
	tagFingerprint [3]string

	events   []string
	done     bool
	width    int
	height   int
	quitting bool
}

// NewWatchModel creates a watch model for the given SKU.
func NewWatchModel(sku string) WatchModel {
	m := WatchModel{
		sku:     sku,
		state:   types.StateIdle,
		ordinal: 1,
	}
	m.tagStatus[1] = types.TagPending
	m.tagStatus[2] = types.TagPending
	return m
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}

	case EventMsg:
		m.apply(msg.Envelope)
		return m, nil
	}

	return m, nil
}

// apply folds one event envelope into the dashboard state.
func (m *WatchModel) apply(e *types.EventEnvelope) {
	if e.SessionID != "" {
		m.sessionID = e.SessionID
	}
	ordinal := e.TagOrdinal
	if ordinal < 1 || ordinal > 2 {
		ordinal = m.ordinal
	}

	switch e.Type {
	case types.EventDetectionStarted:
		m.state = types.StateScanning
	case types.EventTagDetected:
		m.state = types.StateTagDetected
		m.ordinal = ordinal
	case types.EventProgrammingStarted:
		m.state = types.StateProgramming
		m.tagStatus[ordinal] = types.TagWriting
	case types.EventProgrammingCompleted:
		m.tagFingerprint[ordinal] = e.Fingerprint
	case types.EventVerificationStarted:
		m.state = types.StateVerifying
		m.tagStatus[ordinal] = types.TagVerifying
	case types.EventReadyForNextTag:
		m.state = types.StateScanning
		m.tagStatus[1] = types.TagPass
		m.ordinal = 2
	case types.EventSessionComplete:
		m.state = types.StateComplete
		m.tagStatus[2] = types.TagPass
		m.done = true
	case types.EventProgrammingError:
		m.state = types.StateError
		m.tagStatus[ordinal] = types.TagFail
	case types.EventDetectionError:
		m.state = types.StateError
	case types.EventDetectionStopped:
		if m.state != types.StateComplete {
			m.state = types.StateIdle
		}
		m.done = true
	}

	m.pushEvent(e)
}

func (m *WatchModel) pushEvent(e *types.EventEnvelope) {
	line := fmt.Sprintf("#%-3d %s", e.Seq, e.Type)
	if e.TagOrdinal != 0 {
		line += fmt.Sprintf(" tag=%d", e.TagOrdinal)
	}
	if e.ErrorText != "" {
		line += " " + e.ErrorText
	}
	m.events = append(m.events, line)
	if len(m.events) > maxEventLines {
		m.events = m.events[len(m.events)-maxEventLines:]
	}
}

// View implements tea.Model.
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Spool Tag Detection"))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("SKU:"), ValueStyle.Render(m.sku)))
	if m.sessionID != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Session:"), ValueStyle.Render(m.sessionID)))
	}
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("State:"),
		StateStyle(string(m.state)).Render(string(m.state))))
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Current tag:"), ValueStyle.Render(fmt.Sprintf("%d", m.ordinal))))

	b.WriteString("\n")
	b.WriteString(m.renderTag(1))
	b.WriteString("\n")
	b.WriteString(m.renderTag(2))
	b.WriteString("\n")

	if len(m.events) > 0 {
		lines := make([]string, len(m.events))
		for i, line := range m.events {
			lines[i] = EventStyle.Render(line)
		}
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	help := "Press q or Ctrl+C to quit"
	if m.done {
		help = "Session finished. Press q to exit"
	}
	b.WriteString(HelpStyle.Render(help))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m WatchModel) renderTag(ordinal int) string {
	status := m.tagStatus[ordinal]
	line := fmt.Sprintf("%s %s", LabelStyle.Render(fmt.Sprintf("Tag %d:", ordinal)),
		StateStyle(string(status)).Render(string(status)))
	if fp := m.tagFingerprint[ordinal]; fp != "" {
		line += "  " + ValueStyle.Render(fp[:16])
	}
	return line
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunWatch starts detection and runs the live dashboard until the
// user quits. The detector is stopped before returning.
func RunWatch(ctx context.Context, detector *detect.Detector, sku, sessionID string) error {
	model := NewWatchModel(sku)
	p := tea.NewProgram(model, tea.WithAltScreen())

	// Subscribe before starting so the first events are not missed.
	detector.Events().SubscribeAll(func(e *types.EventEnvelope) {
		p.Send(EventMsg{Envelope: e})
	})

	if err := detector.Start(ctx, sku, sessionID); err != nil {
		return err
	}
	defer detector.Stop()

	_, err := p.Run()
	return err
}
