// Package emu provides functional RV64I emulation.
package emu

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"
)

// RISC-V Linux syscall numbers.
const (
	SyscallOpenat    uint64 = 56 // openat(dirfd, path, flags, mode)
	SyscallClose     uint64 = 57 // close(fd)
	SyscallLseek     uint64 = 62 // lseek(fd, offset, whence)
	SyscallRead      uint64 = 63 // read(fd, buf, count)
	SyscallWrite     uint64 = 64 // write(fd, buf, count)
	SyscallExit      uint64 = 93 // exit(status)
	SyscallExitGroup uint64 = 94 // exit_group(status)
)

// Linux error codes.
const (
	ENOENT       = 2  // No such file or directory
	EIO          = 5  // I/O error
	EBADF        = 9  // Bad file descriptor
	EACCES       = 13 // Permission denied
	EEXIST       = 17 // File exists
	EISDIR       = 21 // Is a directory
	EINVAL       = 22 // Invalid argument
	ESPIPE       = 29 // Illegal seek
	ENAMETOOLONG = 36 // File name too long
	ENOSYS       = 38 // Function not implemented
)

// Linux open(2) flags and the openat directory sentinel.
const (
	linuxOAccMode = 0o3
	linuxOCreat   = 0o100
	linuxOExcl    = 0o200
	linuxOTrunc   = 0o1000
	linuxOAppend  = 0o2000

	atFDCWD = -100
)

// pathMax bounds guest path strings, including the terminating NUL.
const pathMax = 4096

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64
}

// SyscallHandler is the interface for handling RISC-V syscalls.
type SyscallHandler interface {
	// Handle executes the syscall indicated by the register file state.
	// RISC-V Linux syscall convention:
	//   - Syscall number in a7 (x17)
	//   - Arguments in a0-a5 (x10-x15)
	//   - Return value in a0
	// A returned error is a machine fault, not a failed syscall.
	Handle() (SyscallResult, error)
}

// DefaultSyscallHandler provides a basic syscall handler implementation.
type DefaultSyscallHandler struct {
	regFile *RegFile
	bus     *Bus
	fdTable *FDTable
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewDefaultSyscallHandler creates a default syscall handler. Host file
// access stays disabled until SetFileSystem is called.
func NewDefaultSyscallHandler(regFile *RegFile, bus *Bus, stdout, stderr io.Writer) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		regFile: regFile,
		bus:     bus,
		fdTable: NewFDTable(nil),
		stdin:   nil,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// SetStdin sets the stdin reader for the syscall handler.
func (h *DefaultSyscallHandler) SetStdin(stdin io.Reader) {
	h.stdin = stdin
}

// SetFileSystem exposes a host directory to openat. Descriptors opened so
// far are closed.
func (h *DefaultSyscallHandler) SetFileSystem(root *os.Root) {
	_ = h.fdTable.CloseAll()
	h.fdTable = NewFDTable(root)
}

// FDTable returns the handler's descriptor table.
func (h *DefaultSyscallHandler) FDTable() *FDTable {
	return h.fdTable
}

// Close closes every host file the guest left open.
func (h *DefaultSyscallHandler) Close() error {
	return h.fdTable.CloseAll()
}

// Handle executes the syscall indicated by the register file state.
func (h *DefaultSyscallHandler) Handle() (SyscallResult, error) {
	syscallNum := h.regFile.ReadReg(RegA7)

	switch syscallNum {
	case SyscallOpenat:
		return h.handleOpenat()
	case SyscallClose:
		return h.handleClose(), nil
	case SyscallLseek:
		return h.handleLseek(), nil
	case SyscallRead:
		return h.handleRead()
	case SyscallWrite:
		return h.handleWrite()
	case SyscallExit, SyscallExitGroup:
		return h.handleExit(), nil
	default:
		return h.handleUnknown(), nil
	}
}

// handleExit handles exit (93) and exit_group (94).
func (h *DefaultSyscallHandler) handleExit() SyscallResult {
	exitCode := int64(h.regFile.ReadReg(RegA0))
	return SyscallResult{
		Exited:   true,
		ExitCode: exitCode,
	}
}

// handleOpenat handles the openat syscall (56). Paths always resolve
// against the host root; dirfd must be AT_FDCWD or an open descriptor.
func (h *DefaultSyscallHandler) handleOpenat() (SyscallResult, error) {
	dirfd := int64(h.regFile.ReadReg(RegA0))
	pathPtr := h.regFile.ReadReg(RegA1)
	flags := h.regFile.ReadReg(RegA2)
	mode := h.regFile.ReadReg(RegA3)

	if dirfd != atFDCWD && !h.fdTable.IsOpen(uint64(dirfd)) {
		h.setError(EBADF)
		return SyscallResult{}, nil
	}

	path, ok, err := h.readPath(pathPtr)
	if err != nil {
		return SyscallResult{}, fmt.Errorf("openat: reading path: %w", err)
	}
	if !ok {
		h.setError(ENAMETOOLONG)
		return SyscallResult{}, nil
	}

	fd, err := h.fdTable.Open(path, hostOpenFlags(flags), os.FileMode(mode&0o777))
	if err != nil {
		h.setError(openErrno(err))
		return SyscallResult{}, nil
	}

	h.regFile.WriteReg(RegA0, fd)
	return SyscallResult{}, nil
}

// readPath copies a NUL-terminated string out of guest memory. ok is
// false when no terminator appears within pathMax bytes.
func (h *DefaultSyscallHandler) readPath(addr uint64) (path string, ok bool, err error) {
	buf := make([]byte, 0, 64)
	for i := uint64(0); i < pathMax; i++ {
		b, err := h.bus.ReadBytes(addr+i, 1)
		if err != nil {
			return "", false, err
		}
		if b[0] == 0 {
			return string(buf), true, nil
		}
		buf = append(buf, b[0])
	}
	return "", false, nil
}

func hostOpenFlags(flags uint64) int {
	var host int
	switch flags & linuxOAccMode {
	case 1:
		host = os.O_WRONLY
	case 2:
		host = os.O_RDWR
	default:
		host = os.O_RDONLY
	}
	if flags&linuxOCreat != 0 {
		host |= os.O_CREATE
	}
	if flags&linuxOExcl != 0 {
		host |= os.O_EXCL
	}
	if flags&linuxOTrunc != 0 {
		host |= os.O_TRUNC
	}
	if flags&linuxOAppend != 0 {
		host |= os.O_APPEND
	}
	return host
}

func openErrno(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ENOENT
	case errors.Is(err, fs.ErrExist):
		return EEXIST
	default:
		// Anything else, including disabled host access, reads as EACCES.
		return EACCES
	}
}

// handleClose handles the close syscall (57).
func (h *DefaultSyscallHandler) handleClose() SyscallResult {
	fd := h.regFile.ReadReg(RegA0)

	if err := h.fdTable.Close(fd); err != nil {
		if errors.Is(err, os.ErrInvalid) {
			h.setError(EBADF)
		} else {
			h.setError(EIO)
		}
		return SyscallResult{}
	}

	h.regFile.WriteReg(RegA0, 0)
	return SyscallResult{}
}

// handleLseek handles the lseek syscall (62).
func (h *DefaultSyscallHandler) handleLseek() SyscallResult {
	fd := h.regFile.ReadReg(RegA0)
	offset := int64(h.regFile.ReadReg(RegA1))
	whence := h.regFile.ReadReg(RegA2)

	entry, ok := h.fdTable.Get(fd)
	switch {
	case !ok:
		h.setError(EBADF)
		return SyscallResult{}
	case entry.IsStream():
		h.setError(ESPIPE)
		return SyscallResult{}
	case whence > io.SeekEnd:
		h.setError(EINVAL)
		return SyscallResult{}
	}

	pos, err := h.fdTable.Seek(fd, offset, int(whence))
	if err != nil {
		h.setError(EINVAL)
		return SyscallResult{}
	}

	h.regFile.WriteReg(RegA0, uint64(pos))
	return SyscallResult{}
}

// handleRead handles the read syscall (63).
func (h *DefaultSyscallHandler) handleRead() (SyscallResult, error) {
	fd := h.regFile.ReadReg(RegA0)
	bufPtr := h.regFile.ReadReg(RegA1)
	count := h.regFile.ReadReg(RegA2)

	entry, ok := h.fdTable.Get(fd)
	if !ok || fd == FDStdout || fd == FDStderr {
		h.setError(EBADF)
		return SyscallResult{}, nil
	}

	// With no stdin configured the stream is at EOF
	if count == 0 || (entry.IsStream() && h.stdin == nil) {
		h.regFile.WriteReg(RegA0, 0)
		return SyscallResult{}, nil
	}

	// Bound the host buffer by what the guest could possibly receive
	if limit := h.bus.Memory().Size(); count > limit {
		count = limit
	}

	buf := make([]byte, count)
	var n int
	var err error
	if entry.IsStream() {
		n, err = h.stdin.Read(buf)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	} else {
		n, err = h.fdTable.Read(fd, buf)
	}
	if err != nil && n == 0 {
		h.setError(readErrno(err))
		return SyscallResult{}, nil
	}

	if err := h.bus.WriteBytes(bufPtr, buf[:n]); err != nil {
		return SyscallResult{}, fmt.Errorf("read: copying to guest buffer: %w", err)
	}

	h.regFile.WriteReg(RegA0, uint64(n))
	return SyscallResult{}, nil
}

func readErrno(err error) int {
	if errors.Is(err, syscall.EISDIR) {
		return EISDIR
	}
	return EIO
}

// handleWrite handles the write syscall (64).
func (h *DefaultSyscallHandler) handleWrite() (SyscallResult, error) {
	fd := h.regFile.ReadReg(RegA0)
	bufPtr := h.regFile.ReadReg(RegA1)
	count := h.regFile.ReadReg(RegA2)

	entry, ok := h.fdTable.Get(fd)
	if !ok || fd == FDStdin {
		h.setError(EBADF)
		return SyscallResult{}, nil
	}

	if count > h.bus.Memory().Size() {
		return SyscallResult{}, fmt.Errorf("write: buffer of %d bytes: %w",
			count, &AddressError{Addr: bufPtr, Size: int(h.bus.Memory().Size()), Err: ErrOutOfBounds})
	}

	buf, err := h.bus.ReadBytes(bufPtr, int(count))
	if err != nil {
		return SyscallResult{}, fmt.Errorf("write: copying from guest buffer: %w", err)
	}

	var n int
	switch {
	case !entry.IsStream():
		n, err = h.fdTable.Write(fd, buf)
	case fd == FDStdout:
		n, err = h.stdout.Write(buf)
	default:
		n, err = h.stderr.Write(buf)
	}
	if err != nil {
		h.setError(EIO)
		return SyscallResult{}, nil
	}

	h.regFile.WriteReg(RegA0, uint64(n))
	return SyscallResult{}, nil
}

// handleUnknown handles unrecognized syscalls.
func (h *DefaultSyscallHandler) handleUnknown() SyscallResult {
	h.setError(ENOSYS)
	return SyscallResult{}
}

// setError sets a0 to -errno (as two's complement).
func (h *DefaultSyscallHandler) setError(errno int) {
	h.regFile.WriteReg(RegA0, uint64(-int64(errno)))
}
