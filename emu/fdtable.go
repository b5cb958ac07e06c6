package emu

import (
	"errors"
	"io"
	"os"
	"sync"
)

// ErrNoFileSystem is returned by FDTable.Open when no host directory has
// been made available to the guest.
var ErrNoFileSystem = errors.New("host file access disabled")

// Standard stream descriptors.
const (
	FDStdin  uint64 = 0
	FDStdout uint64 = 1
	FDStderr uint64 = 2
)

// FileDescriptor represents an open guest file descriptor.
type FileDescriptor struct {
	HostFile *os.File // nil for the standard streams
	Path     string   // Path relative to the host root, or the stream name
	Flags    int      // Host open flags
}

// IsStream reports whether the descriptor is one of stdin, stdout or stderr.
func (f *FileDescriptor) IsStream() bool {
	return f.HostFile == nil
}

// FDTable manages guest file descriptors. Files are opened inside a host
// directory through an os.Root, so guest paths cannot escape it.
type FDTable struct {
	root *os.Root
	fds  map[uint64]*FileDescriptor
	mu   sync.Mutex
}

// NewFDTable creates a table with the standard streams open. A nil root
// disables Open.
func NewFDTable(root *os.Root) *FDTable {
	t := &FDTable{
		root: root,
		fds:  make(map[uint64]*FileDescriptor),
	}
	t.fds[FDStdin] = &FileDescriptor{Path: "stdin"}
	t.fds[FDStdout] = &FileDescriptor{Path: "stdout"}
	t.fds[FDStderr] = &FileDescriptor{Path: "stderr"}
	return t
}

// Open opens path relative to the host root and returns the lowest free
// descriptor.
func (t *FDTable) Open(path string, flags int, mode os.FileMode) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.root == nil {
		return 0, ErrNoFileSystem
	}

	hostFile, err := t.root.OpenFile(path, flags, mode)
	if err != nil {
		return 0, err
	}

	fd := FDStderr + 1
	for t.fds[fd] != nil {
		fd++
	}

	t.fds[fd] = &FileDescriptor{
		HostFile: hostFile,
		Path:     path,
		Flags:    flags,
	}

	return fd, nil
}

// Close closes a file descriptor. Closing a standard stream only removes
// it from the table.
func (t *FDTable) Close(fd uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	if !exists {
		return os.ErrInvalid
	}
	delete(t.fds, fd)

	if entry.HostFile != nil {
		return entry.HostFile.Close()
	}
	return nil
}

// CloseAll closes every host file in the table.
func (t *FDTable) CloseAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	for fd, entry := range t.fds {
		if entry.HostFile != nil {
			errs = append(errs, entry.HostFile.Close())
			delete(t.fds, fd)
		}
	}
	return errors.Join(errs...)
}

// Get returns the entry for fd if it is open.
func (t *FDTable) Get(fd uint64) (*FileDescriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	return entry, exists
}

// IsOpen checks if a file descriptor is open.
func (t *FDTable) IsOpen(fd uint64) bool {
	_, ok := t.Get(fd)
	return ok
}

func (t *FDTable) hostFile(fd uint64) (*os.File, error) {
	entry, ok := t.Get(fd)
	if !ok || entry.HostFile == nil {
		return nil, os.ErrInvalid
	}
	return entry.HostFile, nil
}

// Read reads from a host file descriptor. Standard streams are served by
// the syscall handler.
func (t *FDTable) Read(fd uint64, buf []byte) (int, error) {
	f, err := t.hostFile(fd)
	if err != nil {
		return 0, err
	}

	n, err := f.Read(buf)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

// Write writes to a host file descriptor.
func (t *FDTable) Write(fd uint64, buf []byte) (int, error) {
	f, err := t.hostFile(fd)
	if err != nil {
		return 0, err
	}
	return f.Write(buf)
}

// Seek sets the file position of a host file descriptor.
func (t *FDTable) Seek(fd uint64, offset int64, whence int) (int64, error) {
	f, err := t.hostFile(fd)
	if err != nil {
		return 0, err
	}
	return f.Seek(offset, whence)
}
