package octoquad

import (
	pkgerrors "github.com/pkg/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

// periphPort adapts a periph.io I2C device to RegisterPort.
type periphPort struct {
	bus i2c.BusCloser
	dev *i2c.Dev
}

// NewPeriph opens the OctoQuad through periph's bus registry.  An empty busName picks
// the first bus periph finds.
func NewPeriph(busName string, addr uint16) (*OctoQuad, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, pkgerrors.Wrap(err, "periph host init")
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open I2C bus %q", busName)
	}

	return New(&periphPort{
		bus: bus,
		dev: &i2c.Dev{Bus: bus, Addr: addr},
	}), nil
}

func (p *periphPort) ReadReg(reg byte, buf []byte) error {
	return p.dev.Tx([]byte{reg}, buf)
}

func (p *periphPort) WriteReg(reg byte, buf []byte) error {
	_, err := p.dev.Write(append([]byte{reg}, buf...))
	return err
}

func (p *periphPort) Close() error {
	return p.bus.Close()
}
