package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

var errAnswerCanceled = errors.New("answer canceled")

// ask collects the answer to a pending question: an interactive prompt on a
// terminal, otherwise one line from the input.
func (a *App) ask(question string) (string, error) {
	if f, ok := a.In.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return promptInteractive(question, a.In, a.Out)
	}
	return promptLine(question, a.In, a.Out)
}

func promptLine(question string, in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintf(out, "\n%s ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", errAnswerCanceled
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func promptInteractive(question string, in io.Reader, out io.Writer) (string, error) {
	program := tea.NewProgram(newAnswerModel(question), tea.WithInput(in), tea.WithOutput(out))
	final, err := program.Run()
	if err != nil {
		return "", err
	}
	model := final.(answerModel)
	if model.canceled {
		return "", errAnswerCanceled
	}
	return model.answer, nil
}

// answerModel is a single line text prompt.
type answerModel struct {
	question string
	input    textinput.Model
	answer   string
	canceled bool
}

func newAnswerModel(question string) answerModel {
	input := textinput.New()
	input.Placeholder = "yes / no"
	input.CharLimit = 256
	input.Width = 40
	input.Focus()
	return answerModel{question: question, input: input}
}

func (m answerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m answerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.answer = m.input.Value()
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m answerModel) View() string {
	if m.answer != "" || m.canceled {
		return ""
	}
	return fmt.Sprintf("\n%s\n%s\n%s\n",
		titleStyle.Render(m.question),
		m.input.View(),
		dimStyle.Render("enter to submit • esc to cancel"))
}
