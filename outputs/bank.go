package outputs

import (
	"strings"
	"sync"
)

// NumCoils is the number of addressable digital outputs on the bank.
const NumCoils = 24

// A CoilWriter pushes a single output bit to the physical device.
// Framing, batching and retries are the writer's concern.
type CoilWriter interface {
	WriteCoil(index int, on bool) error
}

// ValidationError is a rejected operator input. The message is what
// ends up on the status line.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

const (
	ErrInvalidLength   = ValidationError("Error! Require 24-bit binary input")
	ErrIndexOutOfRange = ValidationError("Error! Output index out of range")
)

// Bank mirrors the logical state of the 24 outputs and pushes every
// change through the coil writer. All mutation happens under one
// mutex so a 24-bit update is never interleaved with another write.
type Bank struct {
	mx   sync.Mutex
	bits [NumCoils]bool
	w    CoilWriter
}

func NewBank(w CoilWriter) *Bank {
	return &Bank{w: w}
}

func parsePattern(s string) (bits [NumCoils]bool, err error) {
	if len(s) != NumCoils {
		return bits, ErrInvalidLength
	}
	for i := 0; i < NumCoils; i++ {
		switch s[i] {
		case '0':
		case '1':
			bits[i] = true
		default:
			return bits, ErrInvalidLength
		}
	}
	return bits, nil
}

// SetAll replaces the whole bank from a 24-character '0'/'1' pattern,
// most-significant-first (pattern[0] is output index 0). A rejected
// pattern leaves the bank untouched. On success every index is
// written to the device in order 0..23.
//
// The mirror tracks the commanded state, not confirmed device state:
// a mid-pattern write failure is surfaced to the caller and does not
// roll the mirror back, since the device may hold any prefix of the
// pattern. Recovery is the coil writer's concern.
func (b *Bank) SetAll(pattern string) error {
	next, err := parsePattern(pattern)
	if err != nil {
		return err
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	b.bits = next
	for i, on := range next {
		if err := b.w.WriteCoil(i, on); err != nil {
			return err
		}
	}
	return nil
}

// SetBit updates a single output and issues exactly one coil write.
func (b *Bank) SetBit(index int, on bool) error {
	if index < 0 || index >= NumCoils {
		return ErrIndexOutOfRange
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	b.bits[index] = on
	return b.w.WriteCoil(index, on)
}

// Apply sets the bank to a registered preset.
func (b *Bank) Apply(s NamedState) error {
	return b.SetAll(s.Bits)
}

// String returns the current pattern as a 24-character binary string.
func (b *Bank) String() string {
	b.mx.Lock()
	defer b.mx.Unlock()
	var sb strings.Builder
	sb.Grow(NumCoils)
	for _, on := range b.bits {
		if on {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
