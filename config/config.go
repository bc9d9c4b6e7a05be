// Package config loads the controller configuration: device
// endpoints, the named-state catalog and the routine catalog.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openlabkit/scopectl/outputs"
	"github.com/openlabkit/scopectl/routine"
)

type Config struct {
	PLC      PLCConfig       `yaml:"plc"`
	Serial   SerialConfig    `yaml:"serial"`
	SPJS     SPJSConfig      `yaml:"spjs"`
	States   []StateConfig   `yaml:"states"`
	Routines []RoutineConfig `yaml:"routines"`
}

type PLCConfig struct {
	Address string `yaml:"address"`
}

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// SPJSConfig points at a serial-port-json-server when the illuminator
// is reached over the network instead of a local port.
type SPJSConfig struct {
	URL  string `yaml:"url"`
	Port string `yaml:"port"`
}

type StateConfig struct {
	Name string `yaml:"name"`
	Bits string `yaml:"bits"`
}

type RoutineConfig struct {
	Name   string       `yaml:"name"`
	Cycles int          `yaml:"cycles"`
	Steps  []StepConfig `yaml:"steps"`
}

type StepConfig struct {
	State string   `yaml:"state"`
	Hold  Duration `yaml:"hold"`
}

// Duration parses "500ms"/"2s" style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the built-in configuration: the A-D presets and the
// four stock routines, ten cycles each.
func Default() Config {
	catalog := outputs.DefaultCatalog()
	states := make([]StateConfig, 0, len(catalog))
	for _, name := range []string{"A", "B", "C", "D"} {
		states = append(states, StateConfig{Name: name, Bits: catalog[name].Bits})
	}
	return Config{
		PLC:    PLCConfig{Address: "192.168.1.3:502"},
		Serial: SerialConfig{Port: "/dev/ttyUSB0", Baud: 9600},
		States: states,
		Routines: []RoutineConfig{
			{Name: "1", Steps: []StepConfig{
				{State: "A", Hold: Duration(time.Second)},
				{State: "B", Hold: Duration(2 * time.Second)},
			}},
			{Name: "2", Steps: []StepConfig{
				{State: "C", Hold: Duration(time.Second)},
				{State: "D", Hold: Duration(time.Second)},
			}},
			{Name: "3", Steps: []StepConfig{
				{State: "A", Hold: Duration(time.Second)},
				{State: "B", Hold: Duration(time.Second)},
				{State: "C", Hold: Duration(2 * time.Second)},
			}},
			{Name: "4", Steps: []StepConfig{
				{State: "A", Hold: Duration(500 * time.Millisecond)},
				{State: "B", Hold: Duration(500 * time.Millisecond)},
				{State: "C", Hold: Duration(500 * time.Millisecond)},
				{State: "D", Hold: Duration(time.Second)},
			}},
		},
	}
}

// Parse overlays YAML data on top of the defaults and validates the
// result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Validate checks that every state is a 24-bit pattern, every routine
// has steps with positive holds, and every step label resolves to a
// registered state.
func (c Config) Validate() error {
	states := make(map[string]bool, len(c.States))
	for _, st := range c.States {
		if st.Name == "" {
			return fmt.Errorf("state with empty name")
		}
		if states[st.Name] {
			return fmt.Errorf("duplicate state %q", st.Name)
		}
		states[st.Name] = true
		if len(st.Bits) != outputs.NumCoils {
			return fmt.Errorf("state %q: pattern must be %d bits, got %d", st.Name, outputs.NumCoils, len(st.Bits))
		}
		for i := 0; i < len(st.Bits); i++ {
			if st.Bits[i] != '0' && st.Bits[i] != '1' {
				return fmt.Errorf("state %q: pattern must be binary", st.Name)
			}
		}
	}
	seen := make(map[string]bool, len(c.Routines))
	for _, r := range c.Routines {
		if r.Name == "" {
			return fmt.Errorf("routine with empty name")
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate routine %q", r.Name)
		}
		seen[r.Name] = true
		if r.Cycles < 0 {
			return fmt.Errorf("routine %q: negative cycle count", r.Name)
		}
		if len(r.Steps) == 0 {
			return fmt.Errorf("routine %q: no steps", r.Name)
		}
		for i, st := range r.Steps {
			if !states[st.State] {
				return fmt.Errorf("routine %q step %d: unknown state %q", r.Name, i, st.State)
			}
			if st.Hold <= 0 {
				return fmt.Errorf("routine %q step %d: hold must be positive", r.Name, i)
			}
		}
	}
	return nil
}

// Catalog builds the named-state table.
func (c Config) Catalog() map[string]outputs.NamedState {
	m := make(map[string]outputs.NamedState, len(c.States))
	for _, st := range c.States {
		m[st.Name] = outputs.NamedState{Name: st.Name, Bits: st.Bits}
	}
	return m
}

// RoutineList builds the routine catalog in declaration order.
func (c Config) RoutineList() []routine.Routine {
	list := make([]routine.Routine, 0, len(c.Routines))
	for _, r := range c.Routines {
		steps := make([]routine.Step, 0, len(r.Steps))
		for _, st := range r.Steps {
			steps = append(steps, routine.Step{Label: st.State, Hold: time.Duration(st.Hold)})
		}
		list = append(list, routine.Routine{Name: r.Name, Cycles: r.Cycles, Steps: steps})
	}
	return list
}
