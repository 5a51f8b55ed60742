// Package files implements the open-file registry and the binary
// record protocol used by PRINT#/INPUT#/BPUT#/BGET#/PTR#/EOF#/EXT#
// (spec.md §4.4, wire format table).
package files

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"bbasic/internal/value"
)

// recordTag identifies the self-describing record kind on the wire.
const (
	tagInt    byte = 0x40
	tagFloat  byte = 0xFF
	tagString byte = 0x00
)

// Channel is one open file descriptor. fds 0,1,2 are reserved for
// stdin/stdout/stderr and never appear here (spec.md's *Channel* error).
type Channel struct {
	fd      int
	file    *os.File
	ptr     int64 // logical position, advanced per typed record, not lseek-based
	traceID uuid.UUID
}

// Registry is the insertion-ordered set of open channels.
type Registry struct {
	byFD map[int]*Channel
	next int
}

func NewRegistry() *Registry {
	return &Registry{byFD: make(map[int]*Channel), next: 3}
}

// IsReserved reports whether fd < 3. The caller raises the channel error
// (as a *bbcerr.Error, not here — this package stays error-code-agnostic)
// whenever such an fd is used. The
// registry itself just reports "not found" for such fds since they can
// never be registered.
func (r *Registry) IsReserved(fd int) bool { return fd < 3 }

// OpenIn opens an existing file for reading; returns fd 0 on failure
// (spec.md's OPENIN contract — BASIC-visible fd, not a Go error).
func (r *Registry) OpenIn(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	return r.register(f)
}

// OpenOut creates (truncating) a file for writing.
func (r *Registry) OpenOut(path string) int {
	f, err := os.Create(path)
	if err != nil {
		return 0
	}
	return r.register(f)
}

// OpenUp opens a file for read/write, creating it if absent.
func (r *Registry) OpenUp(path string) int {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return 0
	}
	return r.register(f)
}

func (r *Registry) register(f *os.File) int {
	fd := r.next
	r.next++
	r.byFD[fd] = &Channel{fd: fd, file: f, traceID: uuid.New()}
	return fd
}

// Close releases fd; a no-op if fd isn't open.
func (r *Registry) Close(fd int) {
	ch, ok := r.byFD[fd]
	if !ok {
		return
	}
	ch.file.Close()
	delete(r.byFD, fd)
}

// CloseAll releases every open channel; run at program exit.
func (r *Registry) CloseAll() {
	for fd := range r.byFD {
		r.Close(fd)
	}
}

func (r *Registry) lookup(fd int) (*Channel, bool) {
	ch, ok := r.byFD[fd]
	return ch, ok
}

// Ptr returns the logical pointer for fd, or ok=false if not open.
func (r *Registry) Ptr(fd int) (int64, bool) {
	ch, ok := r.lookup(fd)
	if !ok {
		return 0, false
	}
	return ch.ptr, true
}

// Ext returns fd's file size via stat, or ok=false if not open or not a
// regular file.
func (r *Registry) Ext(fd int) (int64, bool) {
	ch, ok := r.lookup(fd)
	if !ok {
		return 0, false
	}
	info, err := ch.file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	return info.Size(), true
}

// DebugExtent renders EXT#'s result in human-readable form for -d
// diagnostics only; the BASIC-visible integer from Ext is unaffected.
func (r *Registry) DebugExtent(fd int) string {
	size, ok := r.Ext(fd)
	if !ok {
		return "?"
	}
	return humanize.Bytes(uint64(size))
}

// DebugDump renders one line per still-open channel for -d/--debug
// output: its fd, human-readable extent, and trace id, so a run that
// leaves channels open (or aborts mid-I/O) can be correlated after the
// fact.
func (r *Registry) DebugDump() string {
	var b strings.Builder
	for _, fd := range r.SortedFDs() {
		ch := r.byFD[fd]
		fmt.Fprintf(&b, "channel %d: extent=%s trace=%s\n", fd, r.DebugExtent(fd), ch.traceID)
	}
	return b.String()
}

// Eof reports whether fd is at end-of-file on a regular file (racy by
// construction if another process is writing it — spec.md §9).
func (r *Registry) Eof(fd int) (bool, bool) {
	ch, ok := r.lookup(fd)
	if !ok {
		return false, false
	}
	size, ok := r.Ext(fd)
	if !ok {
		return false, false
	}
	return ch.ptr == size, true
}

// BGet reads one raw byte, advancing ptr by one.
func (r *Registry) BGet(fd int) (byte, bool) {
	ch, ok := r.lookup(fd)
	if !ok {
		return 0, false
	}
	var b [1]byte
	n, err := ch.file.ReadAt(b[:], ch.ptr)
	if n != 1 || err != nil {
		return 0, false
	}
	ch.ptr++
	return b[0], true
}

// BPut writes one raw byte, advancing ptr by one.
func (r *Registry) BPut(fd int, b byte) bool {
	ch, ok := r.lookup(fd)
	if !ok {
		return false
	}
	if _, err := ch.file.WriteAt([]byte{b}, ch.ptr); err != nil {
		return false
	}
	ch.ptr++
	return true
}

// PutValue writes one self-describing record for v per spec.md's wire
// table, advancing ptr by the record's length.
func (r *Registry) PutValue(fd int, v value.Value) bool {
	ch, ok := r.lookup(fd)
	if !ok {
		return false
	}
	buf := encodeRecord(v)
	if _, err := ch.file.WriteAt(buf, ch.ptr); err != nil {
		return false
	}
	ch.ptr += int64(len(buf))
	return true
}

func encodeRecord(v value.Value) []byte {
	switch v.Kind() {
	case value.Int:
		buf := make([]byte, 5)
		buf[0] = tagInt
		binary.BigEndian.PutUint32(buf[1:], uint32(v.AsInt()))
		return buf
	case value.Float:
		buf := make([]byte, 9)
		buf[0] = tagFloat
		binary.NativeEndian.PutUint64(buf[1:], math.Float64bits(v.AsFloat()))
		return buf
	default:
		s := v.AsStringBorrowed()
		if len(s) > 255 {
			s = s[:255]
		}
		buf := make([]byte, 2+len(s))
		buf[0] = tagString
		buf[1] = byte(len(s))
		copy(buf[2:], s)
		return buf
	}
}

// GetValue reads one self-describing record starting at the channel's
// current logical pointer, advancing it by the record's length. ok is
// false on short read / malformed tag (treated as EOF by the caller).
func (r *Registry) GetValue(fd int) (value.Value, bool) {
	ch, ok := r.lookup(fd)
	if !ok {
		return value.Value{}, false
	}
	v, n, ok := readRecordAt(ch.file, ch.ptr)
	if !ok {
		return value.Value{}, false
	}
	ch.ptr += n
	return v, true
}

func readRecordAt(f *os.File, off int64) (value.Value, int64, bool) {
	var tag [1]byte
	if n, err := f.ReadAt(tag[:], off); n != 1 || err != nil {
		return value.Value{}, 0, false
	}
	switch tag[0] {
	case tagInt:
		buf := make([]byte, 4)
		if n, err := f.ReadAt(buf, off+1); n != 4 || err != nil {
			return value.Value{}, 0, false
		}
		i := int32(binary.BigEndian.Uint32(buf))
		return value.NewInt(i), 5, true
	case tagFloat:
		buf := make([]byte, 8)
		if n, err := f.ReadAt(buf, off+1); n != 8 || err != nil {
			return value.Value{}, 0, false
		}
		bits := binary.NativeEndian.Uint64(buf)
		return value.NewFloat(math.Float64frombits(bits)), 9, true
	case tagString:
		var lenBuf [1]byte
		if n, err := f.ReadAt(lenBuf[:], off+1); n != 1 || err != nil {
			return value.Value{}, 0, false
		}
		l := int(lenBuf[0])
		buf := make([]byte, l)
		if l > 0 {
			if n, err := f.ReadAt(buf, off+2); n != l || err != nil {
				return value.Value{}, 0, false
			}
		}
		return value.NewString(string(buf)), int64(2 + l), true
	default:
		return value.Value{}, 0, false
	}
}

// SeekPtr repositions fd's logical pointer to the record boundary that
// is `count` typed records from the start of the file — BASIC's
// PTR#(fd) = n reopens the typed stream from offset 0 and walks forward
// record-by-record, per spec.md §4.4, rather than doing a raw lseek.
func (r *Registry) SeekPtr(fd int, count int64) error {
	ch, ok := r.lookup(fd)
	if !ok {
		return fmt.Errorf("channel %d not open", fd)
	}
	var off int64
	for i := int64(0); i < count; i++ {
		_, n, ok := readRecordAt(ch.file, off)
		if !ok {
			break
		}
		off += n
	}
	ch.ptr = off
	return nil
}

// SortedFDs returns the open fds in ascending order, used only for
// debug-mode dumps.
func (r *Registry) SortedFDs() []int {
	fds := make([]int, 0, len(r.byFD))
	for fd := range r.byFD {
		fds = append(fds, fd)
	}
	sort.Ints(fds)
	return fds
}
