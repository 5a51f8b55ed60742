// Package terminal implements the cbreak-mode single-key reads behind
// GET and INKEY (spec.md §4.2). Raw mode is switched on lazily on first
// use and restored at process exit via a single process-wide latch, the
// same shape the teacher uses for its one-shot setup/teardown resources.
package terminal

import (
	"bufio"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Reader owns the raw-mode state for stdin.
type Reader struct {
	fd       int
	isTTY    bool
	oldState *term.State
	raw      bool
	buf      *bufio.Reader
}

func NewReader() *Reader {
	fd := int(os.Stdin.Fd())
	return &Reader{fd: fd, isTTY: isatty.IsTerminal(uintptr(fd)), buf: bufio.NewReader(os.Stdin)}
}

// enableRaw switches stdin into cbreak mode exactly once; subsequent
// calls are no-ops. Non-tty stdin (pipes, redirected files, tests) is
// left alone — reads then fall back to buffered line input.
func (r *Reader) enableRaw() {
	if r.raw || !r.isTTY {
		return
	}
	state, err := term.MakeRaw(r.fd)
	if err != nil {
		return
	}
	r.oldState = state
	r.raw = true
}

// Restore returns stdin to cooked mode; safe to call multiple times and
// safe to call when raw mode was never entered. Registered by the
// driver as a deferred/atexit-style cleanup alongside open-file close.
func (r *Reader) Restore() {
	if !r.raw {
		return
	}
	term.Restore(r.fd, r.oldState)
	r.raw = false
}

// GetKey blocks for exactly one key, returning its code per spec.md's
// GET contract. On non-tty stdin it reads one byte from the buffered
// stream instead, so piped/file input and tests keep working.
func (r *Reader) GetKey() (int, error) {
	r.enableRaw()
	if !r.isTTY {
		b, err := r.buf.ReadByte()
		if err != nil {
			return -1, err
		}
		return int(b), nil
	}
	var b [1]byte
	n, err := os.Stdin.Read(b[:])
	if err != nil || n == 0 {
		return -1, err
	}
	return int(b[0]), nil
}

// InkeyWait waits up to d for one key, returning ok=false on timeout
// (INKEY(n) with n>=0, spec.md's 1/100s-unit contract). d<=0 polls
// without blocking. On non-tty stdin the timeout is irrelevant since
// there is no wall-clock wait on a byte already buffered; EOF reports
// ok=false rather than an error so INKEY never aborts a script reading
// from a finite input file.
func (r *Reader) InkeyWait(d time.Duration) (int, bool) {
	r.enableRaw()
	if !r.isTTY {
		b, err := r.buf.ReadByte()
		if err != nil {
			return -1, false
		}
		return int(b), true
	}

	var fds unix.FdSet
	fds.Set(r.fd)
	tv := unix.NsecToTimeval(int64(d))
	for {
		n, err := unix.Select(r.fd+1, &fds, nil, nil, &tv)
		if err == unix.EINTR {
			continue
		}
		if err != nil || n <= 0 {
			return -1, false
		}
		break
	}
	var b [1]byte
	n, err := os.Stdin.Read(b[:])
	if err != nil || n == 0 {
		return -1, false
	}
	return int(b[0]), true
}

// ScanKey implements INKEY(-n): probe whether key -n is currently held.
// Real keyboard-matrix scanning has no portable equivalent outside the
// original hardware, so this always reports "not pressed" — documented
// as a deliberate scope cut (spec.md's non-goal on hardware-specific
// input).
func (r *Reader) ScanKey(code int) bool { return false }

// ansiColours maps a small set of names to SGR codes; used only by the
// driver's own startup/error banners, never by BASIC program output
// (this subset has no colour statements).
var ansiColours = map[string]string{
	"red":    "31",
	"green":  "32",
	"yellow": "33",
	"cyan":   "36",
	"bold":   "1",
}

// Colour wraps s in the named SGR escape when stdout is a tty, and
// returns it unchanged otherwise (piped/redirected output, CI logs).
func Colour(name, s string) string {
	code, ok := ansiColours[name]
	if !ok || !isatty.IsTerminal(os.Stdout.Fd()) {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}
