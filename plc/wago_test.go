package plc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type coilCall struct {
	address uint16
	value   uint16
}

type fakeClient struct {
	calls []coilCall
	err   error
}

func (f *fakeClient) WriteSingleCoil(address, value uint16) ([]byte, error) {
	f.calls = append(f.calls, coilCall{address: address, value: value})
	return nil, f.err
}

func TestWago_WriteCoil(t *testing.T) {
	f := &fakeClient{}
	w := &Wago{c: f}

	assert.NoError(t, w.WriteCoil(3, true))
	assert.NoError(t, w.WriteCoil(0, false))
	assert.NoError(t, w.WriteCoil(23, true))

	assert.Equal(t, []coilCall{
		{address: 3, value: coilOn},
		{address: 0, value: coilOff},
		{address: 23, value: coilOn},
	}, f.calls)
}

func TestWago_WriteCoil_Error(t *testing.T) {
	f := &fakeClient{err: errors.New("modbus: exception 2")}
	w := &Wago{c: f}

	err := w.WriteCoil(1, true)
	assert.Error(t, err)
}

func TestWago_Close(t *testing.T) {
	w := &Wago{c: &fakeClient{}}
	assert.NoError(t, w.Close())
}
