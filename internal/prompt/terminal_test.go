// ABOUTME: Tests for the terminal update prompt
// ABOUTME: Feeds answers through a pipe and checks rendering and callbacks

package prompt

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type answers struct {
	accepted  chan struct{}
	dismissed chan struct{}
}

func newAnswers() *answers {
	return &answers{accepted: make(chan struct{}, 1), dismissed: make(chan struct{}, 1)}
}

func (a *answers) accept()  { a.accepted <- struct{}{} }
func (a *answers) dismiss() { a.dismissed <- struct{}{} }

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for answer")
	}
}

func TestRender_ShowsVersions(t *testing.T) {
	out := Render("1.2.9", "1.3.0")
	assert.Contains(t, out, "New version available")
	assert.Contains(t, out, "1.2.9 → 1.3.0")
	assert.Contains(t, out, "[r] reload now")
}

func TestTerminal_AcceptOnReload(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	out := &syncBuffer{}
	a := newAnswers()

	term := NewTerminal(in, out)
	term.ShowUpdatePrompt("1.2.9", "1.3.0", a.accept, a.dismiss)

	_, err := w.Write([]byte("r\n"))
	require.NoError(t, err)
	waitFor(t, a.accepted)
	assert.Contains(t, out.String(), "1.2.9 → 1.3.0")
}

func TestTerminal_EmptyLineAccepts(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	a := newAnswers()

	term := NewTerminal(in, &syncBuffer{})
	term.ShowUpdatePrompt("1.0.0", "1.0.1", a.accept, a.dismiss)

	_, err := w.Write([]byte("\n"))
	require.NoError(t, err)
	waitFor(t, a.accepted)
}

func TestTerminal_DismissAfterUnknownAnswer(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	out := &syncBuffer{}
	a := newAnswers()

	term := NewTerminal(in, out)
	term.ShowUpdatePrompt("1.2.9", "1.3.0", a.accept, a.dismiss)

	_, err := w.Write([]byte("maybe\nlater\n"))
	require.NoError(t, err)
	waitFor(t, a.dismissed)
	assert.Contains(t, out.String(), "Type r to reload now")
	assert.Empty(t, a.accepted)
}

func TestTerminal_HiddenPromptIgnoresInput(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	out := &syncBuffer{}
	a := newAnswers()

	term := NewTerminal(in, out)
	term.ShowUpdatePrompt("1.2.9", "1.3.0", a.accept, a.dismiss)
	term.Hide()

	go func() { _, _ = w.Write([]byte("r\n")) }()

	select {
	case <-a.accepted:
		t.Fatal("hidden prompt must not accept")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Contains(t, out.String(), "Update prompt closed")
}

func TestTerminal_CountdownOnlyWhileShown(t *testing.T) {
	out := &syncBuffer{}
	term := NewTerminal(bytes.NewReader(nil), out)

	term.Countdown(5)
	assert.NotContains(t, out.String(), "Reloading automatically")

	a := newAnswers()
	term.ShowUpdatePrompt("1.0.0", "1.1.0", a.accept, a.dismiss)
	term.Countdown(5)
	assert.Contains(t, out.String(), "Reloading automatically in 5s")
}
