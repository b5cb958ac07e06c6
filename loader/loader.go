package loader

import (
	"bytes"
	"fmt"
	"os"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// SegmentWriter receives program segments. *emu.Emulator implements it.
type SegmentWriter interface {
	LoadSegment(addr uint64, data []byte) error
}

// Load reads the program at path. Files starting with the ELF magic must
// be RISC-V ELF64 binaries; anything else is a flat image placed at base
// with its entry point at base.
func Load(path string, base uint64) (*Program, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}

	if bytes.HasPrefix(image, elfMagic) {
		return LoadELF(image)
	}

	return LoadFlat(image, base)
}

// LoadFlat wraps a raw memory image as a single segment at base.
func LoadFlat(image []byte, base uint64) (*Program, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty program image")
	}

	return &Program{
		EntryPoint: base,
		Format:     FormatFlat,
		Segments: []Segment{{
			VirtAddr: base,
			Data:     image,
			MemSize:  uint64(len(image)),
			Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}, nil
}

// Size returns the total in-memory size of all segments.
func (p *Program) Size() uint64 {
	var total uint64
	for _, seg := range p.Segments {
		total += seg.MemSize
	}
	return total
}

// LoadInto copies every segment into w and zero-fills the BSS tail of
// segments whose memory size exceeds their file size.
func (p *Program) LoadInto(w SegmentWriter) error {
	for _, seg := range p.Segments {
		if len(seg.Data) > 0 {
			if err := w.LoadSegment(seg.VirtAddr, seg.Data); err != nil {
				return err
			}
		}

		fileSize := uint64(len(seg.Data))
		if seg.MemSize > fileSize {
			bss := make([]byte, seg.MemSize-fileSize)
			if err := w.LoadSegment(seg.VirtAddr+fileSize, bss); err != nil {
				return fmt.Errorf("zeroing bss: %w", err)
			}
		}
	}

	return nil
}
