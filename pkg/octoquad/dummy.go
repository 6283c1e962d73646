package octoquad

import (
	"fmt"
	"strings"
	"sync"
)

// Dummy returns a simulated OctoQuad that reports the given positions on every read.
// Useful for exercising the rest of the robot without the board attached.
func Dummy(positions []int) Interface {
	d := &dummyOctoQuad{}
	copy(d.positions[:], positions)
	return d
}

type dummyOctoQuad struct {
	lock      sync.Mutex
	positions [NumChannels]int
	bankCfg   ChannelBankConfig
	pulse     [NumChannels]PulseWidthParams
	// Set once the current config has been logged by a read.
	reported bool
}

func (d *dummyOctoQuad) ResetEverything() error {
	fmt.Println("Dummy OctoQuad: reset everything")
	d.lock.Lock()
	defer d.lock.Unlock()
	d.bankCfg = AllQuadrature
	d.pulse = [NumChannels]PulseWidthParams{}
	d.reported = false
	return nil
}

func (d *dummyOctoQuad) SetChannelBankConfig(cfg ChannelBankConfig) error {
	if cfg > BankedQuadraturePulseWidth {
		return &ParamError{Param: "channel bank config", Value: int(cfg)}
	}
	fmt.Printf("Dummy OctoQuad: channel bank config %v\n", cfg)
	d.lock.Lock()
	d.bankCfg = cfg
	d.reported = false
	d.lock.Unlock()
	return nil
}

func (d *dummyOctoQuad) SetSingleChannelPulseWidthParams(channel int, params PulseWidthParams) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	fmt.Printf("Dummy OctoQuad: channel %d pulse width %d-%dus\n", channel, params.MinUS, params.MaxUS)
	d.lock.Lock()
	d.pulse[channel] = params
	d.reported = false
	d.lock.Unlock()
	return nil
}

func (d *dummyOctoQuad) SaveParametersToFlash() error {
	fmt.Println("Dummy OctoQuad: save parameters to flash")
	return nil
}

func (d *dummyOctoQuad) FirmwareVersion() (FirmwareVersion, error) {
	return FirmwareVersion{Major: SupportedFirmwareMajor}, nil
}

func (d *dummyOctoQuad) ReadAllEncoderData(block *EncoderDataBlock) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.reported {
		fmt.Println("Dummy OctoQuad: reading with", d.describeLocked())
		d.reported = true
	}
	block.Positions = d.positions
	block.Velocities = [NumChannels]int{}
	return nil
}

func (d *dummyOctoQuad) Close() error {
	return nil
}

// describeLocked summarises the channel configuration, listing only the channels whose
// pulse width has been set.
func (d *dummyOctoQuad) describeLocked() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "bank config %v", d.bankCfg)
	for ch, p := range d.pulse {
		if p == (PulseWidthParams{}) {
			continue
		}
		fmt.Fprintf(&sb, ", channel %d %d-%dus", ch, p.MinUS, p.MaxUS)
	}
	return sb.String()
}
