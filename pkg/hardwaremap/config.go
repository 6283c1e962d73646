package hardwaremap

import (
	"fmt"
	"io/ioutil"
	"os"

	pkgerrors "github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/octopulse/pkg/mux"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/octoquad"
)

const (
	DefaultConfigFile = "/cfg/octopulse.yaml"
	DefaultBus        = "/dev/i2c-1"

	TypeOctoQuad = "octoquad"

	DriverDevfs  = "devfs"
	DriverPeriph = "periph"
	DriverDummy  = "dummy"
)

type Config struct {
	// Bus the mux sits on, if any device uses one.
	MuxBus  string         `yaml:"mux_bus"`
	Devices []DeviceConfig `yaml:"devices"`
}

type DeviceConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Driver  string `yaml:"driver"`
	Bus     string `yaml:"bus"`
	Address int    `yaml:"address"`
	MuxPort *int   `yaml:"mux_port"`

	// Positions reported by the dummy driver.
	DummyPositions []int `yaml:"dummy_positions"`
}

// DefaultConfig describes a single OctoQuad on the Pi's main I2C bus.
func DefaultConfig() *Config {
	return &Config{
		Devices: []DeviceConfig{{
			Name:    "octoquad",
			Type:    TypeOctoQuad,
			Driver:  DriverDevfs,
			Bus:     DefaultBus,
			Address: octoquad.DefaultAddr,
		}},
	}
}

// ConfigPath returns $OCTOPULSE_CONFIG if set, otherwise the default path.
func ConfigPath() string {
	if p := os.Getenv("OCTOPULSE_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigFile
}

// Load reads and validates the config file, falling back to DefaultConfig if the file
// doesn't exist.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Println("No hardware config at", path, "; using defaults")
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "read hardware config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "hardware config %s", path)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MuxBus == "" {
		c.MuxBus = DefaultBus
	}
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Type == "" {
			d.Type = TypeOctoQuad
		}
		if d.Driver == "" {
			d.Driver = DriverDevfs
		}
		if d.Bus == "" && d.Driver == DriverDevfs {
			d.Bus = DefaultBus
		}
		if d.Address == 0 && d.Type == TypeOctoQuad {
			d.Address = octoquad.DefaultAddr
		}
	}
}

// Validate checks the config without modifying it.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("device %d: name required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("device %q: duplicate name", d.Name)
		}
		seen[d.Name] = true

		if d.Type != TypeOctoQuad {
			return fmt.Errorf("device %q: unknown type %q", d.Name, d.Type)
		}
		switch d.Driver {
		case DriverDevfs, DriverPeriph, DriverDummy:
		default:
			return fmt.Errorf("device %q: unknown driver %q", d.Name, d.Driver)
		}
		if d.Address < 0x08 || d.Address > 0x77 {
			return fmt.Errorf("device %q: address 0x%x outside 7-bit I2C range", d.Name, d.Address)
		}
		if d.MuxPort != nil {
			if *d.MuxPort < 0 || *d.MuxPort >= mux.NumPorts {
				return fmt.Errorf("device %q: mux_port %d out of range", d.Name, *d.MuxPort)
			}
			if d.Driver == DriverPeriph {
				return fmt.Errorf("device %q: mux_port needs the devfs or dummy driver", d.Name)
			}
		}
		if len(d.DummyPositions) > octoquad.NumChannels {
			return fmt.Errorf("device %q: %d dummy positions for %d channels",
				d.Name, len(d.DummyPositions), octoquad.NumChannels)
		}
	}
	return nil
}
