package env

import (
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/go-task/shexec/errors"
)

// FileDesc is an open descriptor. A nil Reader or Writer means the descriptor
// cannot be used in that direction. Entries do not own their handles: whoever
// opened a handle closes it.
type FileDesc struct {
	Reader      io.Reader
	Writer      io.Writer
	CloseOnExec bool
}

// File returns the underlying *os.File, if any, so it can be handed to child
// processes directly. Wrappers expose theirs through an OSFile method.
func (d FileDesc) File() (*os.File, bool) {
	for _, v := range []any{d.Reader, d.Writer} {
		switch f := v.(type) {
		case *os.File:
			return f, true
		case interface{ OSFile() *os.File }:
			return f.OSFile(), true
		}
	}
	return nil, false
}

// ReadFd returns a descriptor open for reading only.
func ReadFd(r io.Reader) FileDesc { return FileDesc{Reader: r} }

// WriteFd returns a descriptor open for writing only.
func WriteFd(w io.Writer) FileDesc { return FileDesc{Writer: w} }

// FdTable maps descriptor numbers to open descriptors.
type FdTable struct {
	fds map[int]FileDesc
}

// NewFdTable returns an empty table.
func NewFdTable() *FdTable {
	return &FdTable{fds: make(map[int]FileDesc)}
}

// StdIO returns a table with descriptors 0, 1 and 2 set. Nil arguments leave
// the slot closed. Output writers that are not OS files are shared by every
// command that runs at the same time, so their writes are serialized.
func StdIO(stdin io.Reader, stdout, stderr io.Writer) *FdTable {
	t := NewFdTable()
	mu := &sync.Mutex{}
	if stdin != nil {
		t.Set(0, ReadFd(stdin))
	}
	if stdout != nil {
		t.Set(1, WriteFd(syncOutput(stdout, mu)))
	}
	if stderr != nil {
		t.Set(2, WriteFd(syncOutput(stderr, mu)))
	}
	return t
}

func syncOutput(w io.Writer, mu *sync.Mutex) io.Writer {
	switch w.(type) {
	case *os.File, *SyncWriter, interface{ OSFile() *os.File }:
		return w
	}
	return NewSyncWriter(w, mu)
}

// SyncWriter is a writer whose writes hold a mutex that may be shared with
// other writers.
type SyncWriter struct {
	w  io.Writer
	mu *sync.Mutex
}

// NewSyncWriter wraps w so that its writes hold mu.
func NewSyncWriter(w io.Writer, mu *sync.Mutex) *SyncWriter {
	return &SyncWriter{w: w, mu: mu}
}

func (sw *SyncWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}

// Get returns the descriptor in slot fd.
func (t *FdTable) Get(fd int) (FileDesc, bool) {
	d, ok := t.fds[fd]
	return d, ok
}

// Set puts d in slot fd, replacing what was there.
func (t *FdTable) Set(fd int, d FileDesc) {
	t.fds[fd] = d
}

// Close empties slot fd.
func (t *FdTable) Close(fd int) {
	delete(t.fds, fd)
}

// Fds returns the open slots in increasing order.
func (t *FdTable) Fds() []int {
	return slices.Sorted(maps.Keys(t.fds))
}

// Snapshot returns a copy of the table contents for Restore.
func (t *FdTable) Snapshot() map[int]FileDesc {
	return maps.Clone(t.fds)
}

// Restore puts back the contents saved by Snapshot.
func (t *FdTable) Restore(snap map[int]FileDesc) {
	t.fds = maps.Clone(snap)
}

// Clone returns a table with the same descriptors.
func (t *FdTable) Clone() *FdTable {
	return &FdTable{fds: maps.Clone(t.fds)}
}

// Reader returns the reader of slot fd. Reading from a closed or write-only
// slot fails with errors.ErrBadFd.
func (t *FdTable) Reader(fd int) io.Reader {
	if d, ok := t.fds[fd]; ok && d.Reader != nil {
		return d.Reader
	}
	return badFd{}
}

// Writer returns the writer of slot fd. Writing to a closed or read-only slot
// fails with errors.ErrBadFd.
func (t *FdTable) Writer(fd int) io.Writer {
	if d, ok := t.fds[fd]; ok && d.Writer != nil {
		return d.Writer
	}
	return badFd{}
}

// Stdin returns the reader of descriptor 0.
func (t *FdTable) Stdin() io.Reader {
	if d, ok := t.fds[0]; ok && d.Reader != nil {
		return d.Reader
	}
	return strings.NewReader("")
}

// Stdout returns the writer of descriptor 1.
func (t *FdTable) Stdout() io.Writer { return t.Writer(1) }

// Stderr returns the writer of descriptor 2.
func (t *FdTable) Stderr() io.Writer { return t.Writer(2) }

type badFd struct{}

func (badFd) Read([]byte) (int, error)  { return 0, errors.ErrBadFd }
func (badFd) Write([]byte) (int, error) { return 0, errors.ErrBadFd }
