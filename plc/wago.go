// Package plc writes digital outputs on a Wago 750 series coupler
// over Modbus-TCP.
package plc

import (
	"time"

	"github.com/goburrow/modbus"
)

// Modbus single-coil wire values.
const (
	coilOn  = 0xFF00
	coilOff = 0x0000
)

type coilClient interface {
	WriteSingleCoil(address, value uint16) (results []byte, err error)
}

// Wago implements outputs.CoilWriter with one Modbus write per coil.
type Wago struct {
	c      coilClient
	closer interface{ Close() error }
}

// Dial connects to the coupler at addr (host:port).
func Dial(addr string) (*Wago, error) {
	h := modbus.NewTCPClientHandler(addr)
	h.Timeout = 5 * time.Second
	if err := h.Connect(); err != nil {
		return nil, err
	}
	return &Wago{c: modbus.NewClient(h), closer: h}, nil
}

// NewWago wraps an existing Modbus client.
func NewWago(c modbus.Client) *Wago {
	return &Wago{c: c}
}

func (w *Wago) WriteCoil(index int, on bool) error {
	value := uint16(coilOff)
	if on {
		value = coilOn
	}
	_, err := w.c.WriteSingleCoil(uint16(index), value)
	return err
}

func (w *Wago) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
