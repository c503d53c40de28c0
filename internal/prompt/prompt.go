// Package prompt implements the operator-facing confirmation gates.
// Answers are read as free text and matched case-sensitively: only the
// literal "y" is affirmative, anything else refuses (fail closed).
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zaolin/bulwark/internal/action"
)

// Styles shared with the command layer.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	WarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// New returns the prompter for the current process: an inline textinput
// UI on a terminal, a plain line reader otherwise (serial consoles,
// piped input).
func New() action.Prompter {
	if info, err := os.Stdin.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
		return &TeaPrompter{}
	}
	return &ConsolePrompter{In: os.Stdin, Out: os.Stdout}
}

// ConsolePrompter reads answers line-wise from In.
type ConsolePrompter struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

// Ask prints the prompt and returns the next input line without its
// line ending.
func (p *ConsolePrompter) Ask(prompt string) string {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}

	fmt.Fprint(p.Out, prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimRight(line, "\r\n")
}

// Confirm asks a yes/no question. Only "y" confirms.
func (p *ConsolePrompter) Confirm(prompt string) bool {
	return p.Ask(prompt) == "y"
}

// TeaPrompter renders a single inline input field per question.
type TeaPrompter struct{}

// Ask runs an inline input program and returns the entered text.
func (p *TeaPrompter) Ask(prompt string) string {
	m := newAskModel(prompt)

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		// Terminal trouble mid-wizard: fall back to a plain read so the
		// gate still gets an explicit answer.
		fallback := &ConsolePrompter{In: os.Stdin, Out: os.Stdout}
		return fallback.Ask(prompt)
	}

	if am, ok := final.(askModel); ok {
		return am.value
	}
	return ""
}

// Confirm asks a yes/no question. Only "y" confirms; an interrupt
// counts as a refusal.
func (p *TeaPrompter) Confirm(prompt string) bool {
	return p.Ask(prompt) == "y"
}

type askModel struct {
	prompt string
	input  textinput.Model
	value  string
	done   bool
}

func newAskModel(prompt string) askModel {
	ti := textinput.New()
	ti.Width = 40
	ti.Focus()

	return askModel{prompt: prompt, input: ti}
}

// Init implements tea.Model
func (m askModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m askModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			m.value = m.input.Value()
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			// No answer given: the empty value takes the refusing branch.
			m.value = ""
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m askModel) View() string {
	if m.done {
		// Leave the question and the answer on screen after quitting.
		return fmt.Sprintf("%s %s\n", promptStyle.Render(m.prompt), m.value)
	}
	return fmt.Sprintf("%s %s", promptStyle.Render(m.prompt), m.input.View())
}
