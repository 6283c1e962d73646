package hardwaremap

import (
	"errors"
	"fmt"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/octopulse/pkg/mux"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/octoquad"
)

var ErrDeviceNotFound = errors.New("no such device in hardware map")

type Interface interface {
	OctoQuad(name string) (octoquad.Interface, error)
}

type HardwareMap struct {
	lock sync.Mutex
	cfg  *Config

	openers map[string]opener
	opened  map[string]octoquad.Interface

	// One mux per driver: the devfs devices share the real one, dummy devices get a
	// dummy mux that just logs the port switches.
	muxes       map[string]mux.Interface
	muxLock     sync.Mutex
	openMux     func(bus string) (mux.Interface, error)
	newDummyMux func() mux.Interface
	checkIDs    bool
}

type opener func(d DeviceConfig) (octoquad.Interface, error)

var _ Interface = (*HardwareMap)(nil)

func New(cfg *Config) *HardwareMap {
	h := &HardwareMap{
		cfg:         cfg,
		opened:      map[string]octoquad.Interface{},
		muxes:       map[string]mux.Interface{},
		openMux:     mux.New,
		newDummyMux: mux.Dummy,
		checkIDs:    true,
	}
	h.openers = map[string]opener{
		DriverDevfs:  h.openDevfs,
		DriverPeriph: h.openPeriph,
		DriverDummy:  h.openDummy,
	}
	return h
}

// OctoQuad returns the named OctoQuad, opening it on first use.  The handle stays open
// until Close.
func (h *HardwareMap) OctoQuad(name string) (octoquad.Interface, error) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if dev, ok := h.opened[name]; ok {
		return dev, nil
	}
	d, ok := h.lookup(name)
	if !ok {
		return nil, pkgerrors.Wrapf(ErrDeviceNotFound, "%q", name)
	}
	if d.Type != TypeOctoQuad {
		return nil, fmt.Errorf("device %q is a %s, not an OctoQuad", name, d.Type)
	}

	fmt.Printf("HardwareMap: opening %s %q (%s %s 0x%x)\n", d.Type, d.Name, d.Driver, d.Bus, d.Address)
	open, ok := h.openers[d.Driver]
	if !ok {
		return nil, fmt.Errorf("device %q: unknown driver %q", name, d.Driver)
	}
	dev, err := open(d)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open %q", name)
	}
	h.opened[name] = dev
	return dev, nil
}

func (h *HardwareMap) lookup(name string) (DeviceConfig, bool) {
	for _, d := range h.cfg.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return DeviceConfig{}, false
}

// Close releases every device opened so far, then turns off every mux port and closes
// the muxes.
func (h *HardwareMap) Close() error {
	h.lock.Lock()
	defer h.lock.Unlock()

	var firstErr error
	for name, dev := range h.opened {
		if err := dev.Close(); err != nil && firstErr == nil {
			firstErr = pkgerrors.Wrapf(err, "close %q", name)
		}
		delete(h.opened, name)
	}
	for driver, mx := range h.muxes {
		if err := mx.DisableAllPorts(); err != nil && firstErr == nil {
			firstErr = pkgerrors.Wrapf(err, "disable %s mux ports", driver)
		}
		if err := mx.Close(); err != nil && firstErr == nil {
			firstErr = pkgerrors.Wrapf(err, "close %s mux", driver)
		}
		delete(h.muxes, driver)
	}
	return firstErr
}

func (h *HardwareMap) openDevfs(d DeviceConfig) (octoquad.Interface, error) {
	oq, err := octoquad.NewI2C(d.Bus, d.Address)
	if err != nil {
		return nil, err
	}
	if d.MuxPort != nil {
		mx, err := h.muxFor(d.Driver)
		if err != nil {
			_ = oq.Close()
			return nil, err
		}
		oq = octoquad.New(mux.NewPortSelector(&h.muxLock, mx, *d.MuxPort, oq.Port()))
	}
	if err := h.check(oq); err != nil {
		return nil, err
	}
	return oq, nil
}

func (h *HardwareMap) check(oq *octoquad.OctoQuad) error {
	if !h.checkIDs {
		return nil
	}
	if err := oq.CheckChipID(); err != nil {
		_ = oq.Close()
		return err
	}
	return nil
}

func (h *HardwareMap) openPeriph(d DeviceConfig) (octoquad.Interface, error) {
	oq, err := octoquad.NewPeriph(d.Bus, uint16(d.Address))
	if err != nil {
		return nil, err
	}
	if err := h.check(oq); err != nil {
		return nil, err
	}
	return oq, nil
}

func (h *HardwareMap) openDummy(d DeviceConfig) (octoquad.Interface, error) {
	dev := octoquad.Dummy(d.DummyPositions)
	if d.MuxPort == nil {
		return dev, nil
	}
	mx, err := h.muxFor(d.Driver)
	if err != nil {
		return nil, err
	}
	return &muxedOctoQuad{
		port: mux.NewPort(&h.muxLock, mx, *d.MuxPort),
		dev:  dev,
	}, nil
}

// muxFor returns the mux for the given driver's devices, opening it on first use.
func (h *HardwareMap) muxFor(driver string) (mux.Interface, error) {
	if mx, ok := h.muxes[driver]; ok {
		return mx, nil
	}
	var mx mux.Interface
	if driver == DriverDummy {
		mx = h.newDummyMux()
	} else {
		var err error
		mx, err = h.openMux(h.cfg.MuxBus)
		if err != nil {
			return nil, err
		}
	}
	h.muxes[driver] = mx
	return mx, nil
}
