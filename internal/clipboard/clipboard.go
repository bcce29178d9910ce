// Package clipboard exports secrets to the operator's clipboard.
package clipboard

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/atotto/clipboard"
)

// Clipboard writes text to a clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// System writes to the OS clipboard. When no clipboard utility is available
// (headless hosts, SSH sessions) it falls back to an OSC 52 escape sequence,
// which most terminal emulators forward to the local clipboard.
type System struct {
	// Terminal receives the OSC 52 sequence. Nil disables the fallback.
	Terminal io.Writer

	writeAll    func(string) error
	unsupported func() bool
}

// NewSystem returns a System clipboard with an OSC 52 fallback to terminal.
func NewSystem(terminal io.Writer) *System {
	return &System{
		Terminal:    terminal,
		writeAll:    clipboard.WriteAll,
		unsupported: func() bool { return clipboard.Unsupported },
	}
}

func (s *System) WriteAll(text string) error {
	var primary error
	if s.unsupported() {
		primary = errors.New("no clipboard utility available")
	} else if primary = s.writeAll(text); primary == nil {
		return nil
	}

	if s.Terminal == nil {
		return fmt.Errorf("writing clipboard: %w", primary)
	}
	if err := writeOSC52(s.Terminal, text); err != nil {
		return fmt.Errorf("writing clipboard: %w", errors.Join(primary, err))
	}
	return nil
}

func writeOSC52(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, "\x1b]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
	return err
}

// Buffer captures the last write in memory. Web requests hand it to the
// controller and return its contents to the browser.
type Buffer struct {
	mu   sync.Mutex
	text string
	err  error
}

// NewFailingBuffer returns a Buffer whose writes fail with err.
func NewFailingBuffer(err error) *Buffer {
	return &Buffer{err: err}
}

func (b *Buffer) WriteAll(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.text = text
	return nil
}

// Text returns the last successfully written value.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}
