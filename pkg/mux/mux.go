package mux

import (
	"fmt"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	// TCA9548A with all address pins low.
	MuxAddr = 0x70

	NumPorts = 8
)

type Interface interface {
	DisableAllPorts() error
	SelectSinglePort(num int) error
	Close() error
}

type Mux struct {
	dev *i2c.Device
}

func New(deviceFile string) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, MuxAddr)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open mux on %s", deviceFile)
	}
	return &Mux{
		dev: dev,
	}, nil
}

func (m *Mux) SelectSinglePort(num int) error {
	if num < 0 || num >= NumPorts {
		return fmt.Errorf("mux port %d out of range", num)
	}
	return m.dev.Write([]byte{1 << uint(num)})
}

func (m *Mux) DisableAllPorts() error {
	return m.dev.Write([]byte{0})
}

func (m *Mux) Close() error {
	return m.dev.Close()
}

func Dummy() Interface {
	return &dummyMux{}
}

type dummyMux struct {
}

func (d *dummyMux) SelectSinglePort(num int) error {
	fmt.Printf("Dummy Mux setting port=%d\n", num)
	return nil
}

func (d *dummyMux) DisableAllPorts() error {
	fmt.Printf("Dummy Mux disabling all ports\n")
	return nil
}

func (d *dummyMux) Close() error {
	return nil
}

// RegisterPort matches octoquad.RegisterPort; declared here so the mux doesn't depend
// on any particular device package.
type RegisterPort interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) error
	Close() error
}

// Port is one output of a mux.  The lock is shared by all ports on the same mux so that
// a port switch and the transaction that follows it can't be interleaved with another
// device's.
type Port struct {
	lock *sync.Mutex
	mux  Interface
	num  int
}

func NewPort(lock *sync.Mutex, mx Interface, num int) *Port {
	return &Port{
		lock: lock,
		mux:  mx,
		num:  num,
	}
}

// Do selects the port and runs fn while holding the bus.  fn isn't called if the
// select fails.
func (p *Port) Do(fn func() error) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.mux.SelectSinglePort(p.num); err != nil {
		return pkgerrors.Wrapf(err, "select mux port %d", p.num)
	}
	return fn()
}

// PortSelector routes every register access of a device through one mux port.
type PortSelector struct {
	port *Port
	dev  RegisterPort
}

func NewPortSelector(lock *sync.Mutex, mx Interface, port int, dev RegisterPort) *PortSelector {
	return &PortSelector{
		port: NewPort(lock, mx, port),
		dev:  dev,
	}
}

func (s *PortSelector) ReadReg(reg byte, buf []byte) error {
	return s.port.Do(func() error {
		return s.dev.ReadReg(reg, buf)
	})
}

func (s *PortSelector) WriteReg(reg byte, buf []byte) error {
	return s.port.Do(func() error {
		return s.dev.WriteReg(reg, buf)
	})
}

// Close closes the device only; the mux is shared and closed by its owner.
func (s *PortSelector) Close() error {
	return s.dev.Close()
}
