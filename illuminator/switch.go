package illuminator

// A Port is the serial channel to the illuminator controller.
type Port interface {
	Send(p []byte) error
}

// pE-300 series command tokens.
var (
	cmdOn  = []byte("CSN\n")
	cmdOff = []byte("CSF\n")
)

// Switch drives the illuminator on/off line. It keeps no state
// beyond the command it issues and never retries; transport errors
// go back to the caller.
type Switch struct {
	p Port
}

func NewSwitch(p Port) *Switch {
	return &Switch{p: p}
}

// Set issues a single on or off command.
func (s *Switch) Set(on bool) error {
	if on {
		return s.p.Send(cmdOn)
	}
	return s.p.Send(cmdOff)
}
