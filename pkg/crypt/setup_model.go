package crypt

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type setupStep int

const (
	stepEnterPassphrase setupStep = iota
	stepConfirmPassphrase
	stepDone
	stepAborted
)

var (
	setupTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	setupErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	setupHintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// setupModel drives the interactive passphrase creation flow: masked
// entry, minimum length check, then confirmation.
type setupModel struct {
	input       textinput.Model
	currentStep setupStep
	first       string
	errMsg      string
	result      []byte
}

func newSetupModel() setupModel {
	ti := textinput.New()
	ti.Placeholder = "passphrase"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.Focus()

	return setupModel{
		input:       ti,
		currentStep: stepEnterPassphrase,
	}
}

func (m setupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.currentStep = stepAborted
			return m, tea.Quit
		case "enter":
			return m.handleEnter()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m setupModel) handleEnter() (tea.Model, tea.Cmd) {
	value := m.input.Value()

	switch m.currentStep {
	case stepEnterPassphrase:
		if len(value) < MinPassphraseLength {
			m.errMsg = fmt.Sprintf("Passphrase must be at least %d characters.", MinPassphraseLength)
			m.input.SetValue("")
			return m, nil
		}
		m.first = value
		m.errMsg = ""
		m.input.SetValue("")
		m.currentStep = stepConfirmPassphrase
		return m, nil

	case stepConfirmPassphrase:
		if value != m.first {
			m.errMsg = "Passphrases do not match. Try again."
			m.first = ""
			m.input.SetValue("")
			m.currentStep = stepEnterPassphrase
			return m, nil
		}
		m.result = []byte(value)
		m.currentStep = stepDone
		return m, tea.Quit
	}

	return m, nil
}

func (m setupModel) View() string {
	switch m.currentStep {
	case stepDone, stepAborted:
		return ""
	}

	title := setupTitleStyle.Render("Backup Encryption Setup")
	prompt := "Enter passphrase:"
	if m.currentStep == stepConfirmPassphrase {
		prompt = "Confirm passphrase:"
	}

	view := title + "\n\n" + prompt + "\n" + m.input.View() + "\n"
	if m.errMsg != "" {
		view += setupErrStyle.Render(m.errMsg) + "\n"
	}
	view += setupHintStyle.Render("enter to continue • esc to cancel") + "\n"
	return view
}

// PromptPassphrase runs the interactive creation flow and returns the
// chosen passphrase. It reports an error when the user aborts.
func PromptPassphrase() ([]byte, error) {
	program := tea.NewProgram(newSetupModel())
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("passphrase prompt: %w", err)
	}

	m, ok := final.(setupModel)
	if !ok || m.currentStep != stepDone {
		return nil, fmt.Errorf("passphrase setup cancelled")
	}
	return m.result, nil
}
