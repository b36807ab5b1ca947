// ABOUTME: Terminal rendition of the update prompt shown by the update monitor
// ABOUTME: Draws a lipgloss modal with a countdown and reads reload/later answers from input

package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	cPurple = lipgloss.Color("99")
	cGray   = lipgloss.Color("240")
	cWhite  = lipgloss.Color("255")
	cGreen  = lipgloss.Color("118")

	styleModal = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cPurple).
			Padding(1, 3)
	styleTitle   = lipgloss.NewStyle().Foreground(cWhite).Bold(true)
	styleVersion = lipgloss.NewStyle().Foreground(cGreen).Bold(true)
	styleHint    = lipgloss.NewStyle().Foreground(cGray)
)

// Terminal is an interactive update prompt on a terminal.
type Terminal struct {
	out io.Writer

	startReader sync.Once
	in          io.Reader
	lines       chan string

	mu     sync.Mutex
	active *session
}

type session struct {
	from, to  string
	onAccept  func()
	onDismiss func()
	closed    chan struct{}
}

// NewTerminal creates a prompt reading answers from in and drawing to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		out:   out,
		in:    in,
		lines: make(chan string),
	}
}

// ShowUpdatePrompt draws the modal and waits for an answer in the background.
// "r", "reload", "y" or an empty line accept; "l", "later" or "n" dismiss.
func (t *Terminal) ShowUpdatePrompt(from, to string, onAccept, onDismiss func()) {
	s := &session{
		from:      from,
		to:        to,
		onAccept:  onAccept,
		onDismiss: onDismiss,
		closed:    make(chan struct{}),
	}

	t.mu.Lock()
	if t.active != nil {
		close(t.active.closed)
	}
	t.active = s
	t.mu.Unlock()

	fmt.Fprintln(t.out, Render(from, to))

	t.startReader.Do(func() { go t.readLines() })
	go t.listen(s)
}

// Render returns the modal text for an update from one version to another.
func Render(from, to string) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		styleTitle.Render("New version available"),
		"",
		fmt.Sprintf("%s → %s", from, styleVersion.Render(to)),
		"",
		styleHint.Render("[r] reload now   [l] later"),
	)
	return styleModal.Render(body)
}

// Countdown reports the seconds left before the automatic reload.
func (t *Terminal) Countdown(secondsLeft int) {
	t.mu.Lock()
	active := t.active != nil
	t.mu.Unlock()
	if !active {
		return
	}
	color.New(color.FgYellow).Fprintf(t.out, "Reloading automatically in %ds\n", secondsLeft)
}

// Hide closes the modal. Answers typed afterwards are ignored.
func (t *Terminal) Hide() {
	t.mu.Lock()
	s := t.active
	t.active = nil
	if s != nil {
		close(s.closed)
	}
	t.mu.Unlock()

	if s != nil {
		color.New(color.Faint).Fprintln(t.out, "Update prompt closed")
	}
}

func (t *Terminal) readLines() {
	scanner := bufio.NewScanner(t.in)
	for scanner.Scan() {
		t.lines <- scanner.Text()
	}
	close(t.lines)
}

func (t *Terminal) listen(s *session) {
	for {
		select {
		case <-s.closed:
			return
		case line, ok := <-t.lines:
			if !ok {
				return
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "", "r", "reload", "y", "yes":
				s.onAccept()
				return
			case "l", "later", "n", "no":
				s.onDismiss()
				return
			default:
				color.New(color.FgRed).Fprintln(t.out, "Type r to reload now or l for later")
			}
		}
	}
}
