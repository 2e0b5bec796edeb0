package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/exegete-labs/exegete/internal/core/domain"
)

// turn is one completed question/answer pair with its presentation data.
type turn struct {
	question string
	answer   *domain.GroundedAnswer
}

// answerMsg carries a completed answer back into the update loop.
type answerMsg struct {
	question string
	answer   *domain.GroundedAnswer
}

// errMsg carries a pipeline failure back into the update loop.
type errMsg struct {
	question string
	err      error
}

// App is the chat TUI following the Elm architecture. It holds the
// conversation history and feeds it back into each question so
// follow-ups resolve against their context.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *Styles

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	turns   []turn
	history []domain.Exchange
	waiting bool
	err     error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new chat application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Ask a question..."
	ti.Focus()
	ti.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &App{
		ports:   ports,
		ctx:     context.Background(),
		styles:  s,
		input:   ti,
		spinner: sp,
		width:   80,
		height:  24,
	}, nil
}

// WithContext sets the context used for pipeline calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init initialises the application.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and returns the updated model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return a, tea.Quit
		case tea.KeyCtrlL:
			a.turns = nil
			a.history = nil
			a.err = nil
			a.refreshViewport()
			return a, nil
		case tea.KeyEnter:
			return a, a.submit()
		}

	case answerMsg:
		a.waiting = false
		a.err = nil
		a.turns = append(a.turns, turn{question: msg.question, answer: msg.answer})
		a.history = append(a.history, domain.Exchange{
			Question: msg.question,
			Answer:   msg.answer.Text,
		})
		a.refreshViewport()
		return a, nil

	case errMsg:
		a.waiting = false
		a.err = msg.err
		a.refreshViewport()
		return a, nil

	case spinner.TickMsg:
		if !a.waiting {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

// submit sends the current input through the answer pipeline.
func (a *App) submit() tea.Cmd {
	question := strings.TrimSpace(a.input.Value())
	if question == "" || a.waiting {
		return nil
	}
	a.input.Reset()
	a.waiting = true
	a.err = nil

	// Snapshot history; the pipeline call must not race appends.
	history := make([]domain.Exchange, len(a.history))
	copy(history, a.history)

	ask := func() tea.Msg {
		answer, err := a.ports.Answer.Ask(a.ctx, question, history, domain.QueryOptions{})
		if err != nil {
			return errMsg{question: question, err: err}
		}
		return answerMsg{question: question, answer: answer}
	}
	return tea.Batch(a.spinner.Tick, ask)
}

// resize fits the viewport to the current terminal dimensions.
func (a *App) resize() {
	headerHeight := 2
	footerHeight := 4
	vpHeight := a.height - headerHeight - footerHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !a.ready {
		a.viewport = viewport.New(a.width, vpHeight)
		a.ready = true
	} else {
		a.viewport.Width = a.width
		a.viewport.Height = vpHeight
	}
	a.input.Width = a.width - 6
	a.refreshViewport()
}

// refreshViewport re-renders the conversation into the viewport and
// scrolls to the latest turn.
func (a *App) refreshViewport() {
	if !a.ready {
		return
	}
	a.viewport.SetContent(a.renderConversation())
	a.viewport.GotoBottom()
}

// renderConversation renders all completed turns.
func (a *App) renderConversation() string {
	var b strings.Builder

	for i := range a.turns {
		t := &a.turns[i]
		b.WriteString(a.styles.Question.Render("You: " + t.question))
		b.WriteString("\n\n")
		b.WriteString(a.styles.Answer.Render(t.answer.Text))
		b.WriteString("\n")

		if t.answer.Degraded {
			b.WriteString(a.styles.Warning.Render("(answered by fallback model " + t.answer.ModelName + ")"))
			b.WriteString("\n")
		}
		for _, c := range t.answer.Citations {
			b.WriteString(a.styles.Citation.Render(fmt.Sprintf("[%d] %s", c.Marker, c.Citation.String())))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if a.err != nil {
		b.WriteString(a.styles.Error.Render("Error: " + a.err.Error()))
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return a.styles.Muted.Render("Ask a question about your library. Answers cite their sources.")
	}
	return b.String()
}

// View renders the application.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Exegete"))
	b.WriteString("\n\n")
	b.WriteString(a.viewport.View())
	b.WriteString("\n")

	if a.waiting {
		b.WriteString(a.spinner.View())
		b.WriteString(a.styles.Muted.Render(" consulting sources..."))
	} else {
		b.WriteString(a.styles.InputField.Render(a.input.View()))
	}
	b.WriteString("\n")
	b.WriteString(a.styles.Muted.Render("enter: ask • ctrl+l: clear • esc: quit"))
	return b.String()
}

// Run starts the TUI event loop and blocks until exit.
func Run(ports *Ports) error {
	app, err := NewApp(ports)
	if err != nil {
		return err
	}
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
