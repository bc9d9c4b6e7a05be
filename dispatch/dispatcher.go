package dispatch

import (
	"fmt"
	"sort"
	"sync"

	"github.com/openlabkit/scopectl/outputs"
)

const statusOK = "OK"

// Dispatcher relays routine step labels and operator entries to the
// output bank and maintains the status line. It owns no output state
// of its own; the bank does.
type Dispatcher struct {
	bank   *outputs.Bank
	states map[string]outputs.NamedState

	mx       sync.Mutex
	status   string
	lastGood string
}

func New(bank *outputs.Bank, states map[string]outputs.NamedState) *Dispatcher {
	return &Dispatcher{
		bank:     bank,
		states:   states,
		status:   statusOK,
		lastGood: bank.String(),
	}
}

// Apply resolves a routine step label to its preset and applies it to
// the bank. The routine catalog and the state table are defined
// together, so an unmapped label is a configuration bug: fail fast.
func (d *Dispatcher) Apply(label string) error {
	st, ok := d.states[label]
	if !ok {
		panic(fmt.Sprintf("dispatch: no state mapped for routine label %q", label))
	}
	err := d.bank.Apply(st)
	d.record(st.Bits, err)
	return err
}

// ApplyPreset applies a named preset from the operator surface.
// Unlike Apply, the name here is runtime input, so an unknown name is
// an error rather than a panic.
func (d *Dispatcher) ApplyPreset(name string) error {
	st, ok := d.states[name]
	if !ok {
		err := outputs.ValidationError(fmt.Sprintf("Error! Unknown preset %q", name))
		d.record("", err)
		return err
	}
	err := d.bank.Apply(st)
	d.record(st.Bits, err)
	return err
}

// SetManual validates and applies an operator-entered 24-bit pattern.
// A rejected pattern leaves the bank untouched; LastGood keeps the
// value to restore into the entry field.
func (d *Dispatcher) SetManual(bits string) error {
	err := d.bank.SetAll(bits)
	d.record(bits, err)
	return err
}

// SetBit toggles a single output.
func (d *Dispatcher) SetBit(index int, on bool) error {
	err := d.bank.SetBit(index, on)
	d.record(d.bank.String(), err)
	return err
}

// Presets lists the registered preset names, sorted.
func (d *Dispatcher) Presets() []string {
	names := make([]string, 0, len(d.states))
	for name := range d.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Current returns the bank's live pattern.
func (d *Dispatcher) Current() string {
	return d.bank.String()
}

// Status returns the operator status line: "OK" after a clean apply,
// otherwise the message of the last rejected or failed operation.
func (d *Dispatcher) Status() string {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.status
}

// LastGood returns the last pattern that applied cleanly.
func (d *Dispatcher) LastGood() string {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.lastGood
}

func (d *Dispatcher) record(bits string, err error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err != nil {
		d.status = err.Error()
		return
	}
	d.status = statusOK
	d.lastGood = bits
}
