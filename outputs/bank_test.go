package outputs

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type coilWrite struct {
	index int
	on    bool
}

type fakeCoils struct {
	writes []coilWrite
	err    error
}

func (f *fakeCoils) WriteCoil(index int, on bool) error {
	f.writes = append(f.writes, coilWrite{index: index, on: on})
	return f.err
}

func TestBank_SetAll(t *testing.T) {
	f := &fakeCoils{}
	b := NewBank(f)

	pattern := "101010101010101010101010"
	err := b.SetAll(pattern)
	assert.NoError(t, err)
	assert.Equal(t, pattern, b.String())

	// one write per index, in order 0..23
	assert.Len(t, f.writes, NumCoils)
	for i, w := range f.writes {
		assert.Equal(t, i, w.index)
		assert.Equal(t, pattern[i] == '1', w.on)
	}
}

func TestBank_SetAll_InvalidLength(t *testing.T) {
	f := &fakeCoils{}
	b := NewBank(f)
	assert.NoError(t, b.SetAll(strings.Repeat("1", NumCoils)))
	f.writes = nil

	for _, bad := range []string{
		"",
		"0101",
		strings.Repeat("0", NumCoils-1),
		strings.Repeat("0", NumCoils+1),
		strings.Repeat("0", NumCoils-1) + "x",
		strings.Repeat("0", NumCoils-1) + "2",
	} {
		err := b.SetAll(bad)
		assert.Equal(t, ErrInvalidLength, err, "input %q", bad)
	}

	// rejected input leaves state untouched and issues no writes
	assert.Equal(t, strings.Repeat("1", NumCoils), b.String())
	assert.Len(t, f.writes, 0)
}

func TestBank_SetBit(t *testing.T) {
	f := &fakeCoils{}
	b := NewBank(f)

	err := b.SetBit(5, true)
	assert.NoError(t, err)
	assert.Len(t, f.writes, 1)
	assert.Equal(t, coilWrite{index: 5, on: true}, f.writes[0])

	s := b.String()
	for i := 0; i < NumCoils; i++ {
		if i == 5 {
			assert.Equal(t, byte('1'), s[i])
		} else {
			assert.Equal(t, byte('0'), s[i])
		}
	}

	err = b.SetBit(5, false)
	assert.NoError(t, err)
	assert.Equal(t, strings.Repeat("0", NumCoils), b.String())
}

func TestBank_SetBit_OutOfRange(t *testing.T) {
	f := &fakeCoils{}
	b := NewBank(f)

	assert.Equal(t, ErrIndexOutOfRange, b.SetBit(-1, true))
	assert.Equal(t, ErrIndexOutOfRange, b.SetBit(NumCoils, true))
	assert.Len(t, f.writes, 0)
}

func TestBank_Apply(t *testing.T) {
	f := &fakeCoils{}
	b := NewBank(f)
	catalog := DefaultCatalog()

	assert.NoError(t, b.Apply(catalog["B"]))
	assert.Equal(t, strings.Repeat("1", NumCoils), b.String())

	assert.NoError(t, b.Apply(catalog["D"]))
	assert.Equal(t, strings.Repeat("01", NumCoils/2), b.String())
}

func TestBank_WriteError(t *testing.T) {
	f := &fakeCoils{err: errors.New("conn reset")}
	b := NewBank(f)

	err := b.SetAll(strings.Repeat("1", NumCoils))
	assert.Error(t, err)
	assert.Equal(t, "conn reset", err.Error())

	// the mirror keeps the commanded pattern even when a write fails
	assert.Equal(t, strings.Repeat("1", NumCoils), b.String())

	err = b.SetBit(0, true)
	assert.Error(t, err)
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	assert.Equal(t, strings.Repeat("0", NumCoils), catalog["A"].Bits)
	assert.Equal(t, strings.Repeat("1", NumCoils), catalog["B"].Bits)
	assert.Equal(t, "101010101010101010101010", catalog["C"].Bits)
	assert.Equal(t, "010101010101010101010101", catalog["D"].Bits)
}
