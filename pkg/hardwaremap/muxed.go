package hardwaremap

import (
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/mux"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/octoquad"
)

// muxedOctoQuad selects a mux port before each operation on a device that has no
// register-level port to wrap.
type muxedOctoQuad struct {
	port *mux.Port
	dev  octoquad.Interface
}

var _ octoquad.Interface = (*muxedOctoQuad)(nil)

func (m *muxedOctoQuad) ResetEverything() error {
	return m.port.Do(m.dev.ResetEverything)
}

func (m *muxedOctoQuad) SetChannelBankConfig(cfg octoquad.ChannelBankConfig) error {
	return m.port.Do(func() error {
		return m.dev.SetChannelBankConfig(cfg)
	})
}

func (m *muxedOctoQuad) SetSingleChannelPulseWidthParams(channel int, params octoquad.PulseWidthParams) error {
	return m.port.Do(func() error {
		return m.dev.SetSingleChannelPulseWidthParams(channel, params)
	})
}

func (m *muxedOctoQuad) SaveParametersToFlash() error {
	return m.port.Do(m.dev.SaveParametersToFlash)
}

func (m *muxedOctoQuad) FirmwareVersion() (octoquad.FirmwareVersion, error) {
	var v octoquad.FirmwareVersion
	err := m.port.Do(func() error {
		var err error
		v, err = m.dev.FirmwareVersion()
		return err
	})
	return v, err
}

func (m *muxedOctoQuad) ReadAllEncoderData(block *octoquad.EncoderDataBlock) error {
	return m.port.Do(func() error {
		return m.dev.ReadAllEncoderData(block)
	})
}

func (m *muxedOctoQuad) Close() error {
	return m.dev.Close()
}
