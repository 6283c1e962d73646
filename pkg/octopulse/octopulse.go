package octopulse

import (
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/octopulse/pkg/elapsed"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/movingstats"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/octoquad"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/opmode"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/telemetry"
)

const (
	DeviceName      = "octoquad"
	DistanceChannel = 6

	// The ranger outputs a pulse 1µs wide per millimetre, so the channel's position
	// reads directly in mm.  3000mm max range plus 10µs of margin.
	MinPulseWidthUS = 1
	MaxPulseWidthUS = 3010

	LoopStatsWindow      = 100
	TransmissionInterval = 50 * time.Millisecond
)

type Config struct {
	DeviceName           string
	Channel              int
	PulseWidth           octoquad.PulseWidthParams
	LoopStatsWindow      int
	TransmissionInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		DeviceName: DeviceName,
		Channel:    DistanceChannel,
		PulseWidth: octoquad.PulseWidthParams{
			MinUS: MinPulseWidthUS,
			MaxUS: MaxPulseWidthUS,
		},
		LoopStatsWindow:      LoopStatsWindow,
		TransmissionInterval: TransmissionInterval,
	}
}

// Stopwatch measures the time between loop iterations.
type Stopwatch interface {
	Nanoseconds() int64
	Reset()
}

type OpMode struct {
	cfg          Config
	newStopwatch func() Stopwatch
}

var _ opmode.OpMode = (*OpMode)(nil)

func New(cfg Config) *OpMode {
	return &OpMode{
		cfg: cfg,
		newStopwatch: func() Stopwatch {
			return elapsed.New()
		},
	}
}

func (m *OpMode) Name() string {
	return "OctoQuad Pulse Distance"
}

func (m *OpMode) RunOpMode(rt opmode.Runtime) error {
	tel := rt.Telemetry()

	oq, err := rt.HardwareMap().OctoQuad(m.cfg.DeviceName)
	if err != nil {
		return err
	}
	version, err := m.configure(oq)
	if err != nil {
		return err
	}

	tel.AddLine("OctoQuad Firmware v" + version.String())
	tel.AddLine("\nPress START to read values")
	tel.Update()

	rt.WaitForStart()

	tel.SetDisplayFormat(telemetry.Monospace)
	tel.SetMsTransmissionInterval(int(m.cfg.TransmissionInterval / time.Millisecond))

	avgTime := movingstats.New(m.cfg.LoopStatsWindow)
	loopTime := m.newStopwatch()
	var block octoquad.EncoderDataBlock

	for rt.OpModeIsActive() {
		if err := oq.ReadAllEncoderData(&block); err != nil {
			return pkgerrors.Wrap(err, "read encoder data")
		}
		tel.AddData("distance mm", block.Positions[m.cfg.Channel])

		avgTime.Add(float64(loopTime.Nanoseconds()))
		loopTime.Reset()

		tel.AddDataf("Loop time", "%.1f mS", avgTime.Mean()/1e6)
		tel.Update()
	}
	return nil
}

// configure puts the OctoQuad into a known state with the distance channel set up, and
// saves that to flash so it survives a brown-out.
func (m *OpMode) configure(oq octoquad.Interface) (octoquad.FirmwareVersion, error) {
	var v octoquad.FirmwareVersion
	if err := oq.ResetEverything(); err != nil {
		return v, pkgerrors.Wrap(err, "reset OctoQuad")
	}
	if err := oq.SetChannelBankConfig(octoquad.AllPulseWidth); err != nil {
		return v, pkgerrors.Wrap(err, "set channel bank config")
	}
	if err := oq.SetSingleChannelPulseWidthParams(m.cfg.Channel, m.cfg.PulseWidth); err != nil {
		return v, pkgerrors.Wrapf(err, "set channel %d pulse width", m.cfg.Channel)
	}
	if err := oq.SaveParametersToFlash(); err != nil {
		return v, pkgerrors.Wrap(err, "save parameters to flash")
	}
	v, err := oq.FirmwareVersion()
	if err != nil {
		return v, pkgerrors.Wrap(err, "read firmware version")
	}
	return v, nil
}
