// Package trace provides an asynchronous instruction tracer for the
// emulator.
//
// A Tracer owns a consumer goroutine that formats events to a writer.
// Producers never block: when the event buffer is full the event is
// dropped and counted. Close delivers a terminate message and waits a
// bounded time for the consumer to drain.
//
//	tracer := trace.NewTracer(os.Stderr)
//	e := emu.NewEmulator(emu.WithTracer(tracer))
//	result := e.Run(ctx)
//	_ = tracer.Close(time.Second)
package trace

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the default number of buffered events.
const DefaultBufferSize = 4096

// ErrCloseTimeout is returned by Close when the consumer did not finish in
// time.
var ErrCloseTimeout = errors.New("trace consumer did not stop in time")

type messageKind uint8

const (
	msgInstruction messageKind = iota
	msgDumpRegisters
	msgTerminate
)

type message struct {
	kind    messageKind
	pc      uint64
	word    uint32
	regs    [32]uint64
	elapsed time.Duration
}

// Tracer formats instruction and register events on a background
// goroutine. Producer methods must be called from a single goroutine.
type Tracer struct {
	out         io.Writer
	disassemble bool
	bufferSize  int

	messages chan message
	quit     chan struct{}
	done     chan struct{}

	last     time.Time
	closed   atomic.Bool
	dropped  atomic.Uint64
	emitted  atomic.Uint64
	writeErr atomic.Pointer[error]
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithBufferSize sets the event buffer size. Values below 1 are ignored.
func WithBufferSize(n int) Option {
	return func(t *Tracer) {
		if n > 0 {
			t.bufferSize = n
		}
	}
}

// WithDisassembly turns instruction disassembly on or off.
func WithDisassembly(enabled bool) Option {
	return func(t *Tracer) {
		t.disassemble = enabled
	}
}

// NewTracer creates a tracer writing to out and starts its consumer.
func NewTracer(out io.Writer, opts ...Option) *Tracer {
	t := &Tracer{
		out:         out,
		disassemble: true,
		bufferSize:  DefaultBufferSize,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.messages = make(chan message, t.bufferSize)
	t.quit = make(chan struct{})
	t.done = make(chan struct{})
	t.last = time.Now()

	go t.consume()

	return t
}

// TraceInstruction records a retired instruction with the register state
// after it executed.
func (t *Tracer) TraceInstruction(pc uint64, word uint32, regs [32]uint64) {
	now := time.Now()
	elapsed := now.Sub(t.last)
	t.last = now

	t.send(message{
		kind:    msgInstruction,
		pc:      pc,
		word:    word,
		regs:    regs,
		elapsed: elapsed,
	})
}

// DumpRegisters records a full register dump.
func (t *Tracer) DumpRegisters(regs [32]uint64) {
	t.send(message{kind: msgDumpRegisters, regs: regs})
}

// Dropped returns the number of events discarded because the buffer was
// full or the tracer was closed.
func (t *Tracer) Dropped() uint64 {
	return t.dropped.Load()
}

// Emitted returns the number of events written by the consumer.
func (t *Tracer) Emitted() uint64 {
	return t.emitted.Load()
}

// Err returns the first error returned by the writer, if any.
func (t *Tracer) Err() error {
	if err := t.writeErr.Load(); err != nil {
		return *err
	}
	return nil
}

func (t *Tracer) send(m message) {
	if t.closed.Load() {
		t.dropped.Add(1)
		return
	}

	select {
	case t.messages <- m:
	default:
		t.dropped.Add(1)
	}
}

// Close delivers the terminate message and waits at most timeout for the
// consumer to write everything queued before it. Calling Close more than
// once is a no-op.
func (t *Tracer) Close(timeout time.Duration) error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case t.messages <- message{kind: msgTerminate}:
	case <-timer.C:
		close(t.quit)
		return fmt.Errorf("%w: terminate not delivered within %v", ErrCloseTimeout, timeout)
	}

	select {
	case <-t.done:
		return nil
	case <-timer.C:
		close(t.quit)
		return fmt.Errorf("%w: %d events pending after %v", ErrCloseTimeout, len(t.messages), timeout)
	}
}

func (t *Tracer) consume() {
	defer close(t.done)

	for {
		select {
		case m := <-t.messages:
			if m.kind == msgTerminate {
				return
			}
			t.handle(m)
		case <-t.quit:
			return
		}
	}
}

func (t *Tracer) handle(m message) {
	var err error

	switch m.kind {
	case msgInstruction:
		err = t.writeInstruction(m)
	case msgDumpRegisters:
		_, err = io.WriteString(t.out, FormatRegisters(m.regs))
	}

	if err != nil {
		t.writeErr.CompareAndSwap(nil, &err)
		return
	}
	t.emitted.Add(1)
}

func (t *Tracer) writeInstruction(m message) error {
	if !t.disassemble {
		_, err := fmt.Fprintf(t.out, "%x: %08x - %dns\n", m.pc, m.word, m.elapsed.Nanoseconds())
		return err
	}

	_, err := fmt.Fprintf(t.out, "%x: %08x %-28s - %dns\n",
		m.pc, m.word, Disassemble(m.word), m.elapsed.Nanoseconds())
	return err
}
