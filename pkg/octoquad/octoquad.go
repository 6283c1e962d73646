package octoquad

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x30

	ExpectedChipID         = 0x51
	SupportedFirmwareMajor = 2

	NumChannels = 8

	MinPulseWidthUS = 0
	MaxPulseWidthUS = 0xffff

	MinVelocitySampleIntervalMS = 1
	MaxVelocitySampleIntervalMS = 255
)

type Register byte

const (
	RegChipID Register = iota
	RegFirmwareMajor
	RegFirmwareMinor
	RegFirmwareEngineering
	RegCommand
	RegCommandData0
	RegCommandData1
	RegCommandData2
	RegCommandData3
	RegCommandData4
	RegCommandData5
	RegCommandData6

	// Eight int32 positions, then eight int16 velocities.
	RegEncoder0Position Register = 0x0c
	RegEncoder0Velocity Register = 0x2c
)

const (
	positionBytes = 4
	velocityBytes = 2

	dataBlockLen = NumChannels * (positionBytes + velocityBytes)
)

type Command byte

const (
	CmdSetParam           Command = 1
	CmdReadParam          Command = 2
	CmdWriteParamsToFlash Command = 3
	CmdResetEverything    Command = 20
	CmdResetEncoders      Command = 21
)

type Param byte

const (
	ParamEncoderDirections Param = iota
	ParamI2CRecoveryMode
	ParamChannelBankConfig
	ParamChannelVelocityInterval
	ParamChannelPulseWidthMinMax
)

// ChannelBankConfig selects the input mode of the two banks of four channels.
type ChannelBankConfig byte

const (
	AllQuadrature ChannelBankConfig = iota
	AllPulseWidth
	// Channels 0-3 quadrature, 4-7 pulse width.
	BankedQuadraturePulseWidth
)

func (c ChannelBankConfig) String() string {
	switch c {
	case AllQuadrature:
		return "all-quadrature"
	case AllPulseWidth:
		return "all-pulse-width"
	case BankedQuadraturePulseWidth:
		return "quadrature/pulse-width"
	default:
		return fmt.Sprintf("unknown(%d)", byte(c))
	}
}

// PulseWidthParams bounds the pulse width, in microseconds, that a pulse-width channel
// maps onto its position range.
type PulseWidthParams struct {
	MinUS int
	MaxUS int
}

func (p PulseWidthParams) Validate() error {
	if p.MinUS < MinPulseWidthUS || p.MinUS > MaxPulseWidthUS {
		return &ParamError{Param: "min pulse width", Value: p.MinUS}
	}
	if p.MaxUS < MinPulseWidthUS || p.MaxUS > MaxPulseWidthUS {
		return &ParamError{Param: "max pulse width", Value: p.MaxUS}
	}
	if p.MinUS >= p.MaxUS {
		return &ParamError{Param: "max pulse width (must exceed min)", Value: p.MaxUS}
	}
	return nil
}

// EncoderDataBlock holds one snapshot of every channel's registers.
type EncoderDataBlock struct {
	Positions  [NumChannels]int
	Velocities [NumChannels]int
}

type FirmwareVersion struct {
	Major, Minor, Engineering byte
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Engineering)
}

var (
	ErrOutOfRange  = errors.New("value out of range")
	ErrWrongChipID = errors.New("unexpected OctoQuad chip ID")
)

// ParamError reports a configuration value the driver refused to send.
type ParamError struct {
	Param string
	Value int
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("octoquad: %s %d: %v", e.Param, e.Value, ErrOutOfRange)
}

func (e *ParamError) Unwrap() error {
	return ErrOutOfRange
}

type Interface interface {
	ResetEverything() error
	SetChannelBankConfig(cfg ChannelBankConfig) error
	SetSingleChannelPulseWidthParams(channel int, params PulseWidthParams) error
	SaveParametersToFlash() error
	FirmwareVersion() (FirmwareVersion, error)
	ReadAllEncoderData(block *EncoderDataBlock) error
	Close() error
}

// RegisterPort is the register-level view of a device on the bus.  *i2c.Device from
// golang.org/x/exp satisfies it directly.
type RegisterPort interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) error
	Close() error
}

// FlashSettleTime is how long the firmware needs to finish a flash write before it
// answers on the bus again.
var FlashSettleTime = 100 * time.Millisecond

type OctoQuad struct {
	dev RegisterPort
}

var _ Interface = (*OctoQuad)(nil)

func New(dev RegisterPort) *OctoQuad {
	return &OctoQuad{
		dev: dev,
	}
}

// Port exposes the underlying register port, e.g. to route it through a bus mux.
func (o *OctoQuad) Port() RegisterPort {
	return o.dev
}

// NewI2C opens the OctoQuad through the kernel's i2c-dev interface.
func NewI2C(deviceFile string, addr int) (*OctoQuad, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open %s addr 0x%x", deviceFile, addr)
	}
	return New(dev), nil
}

// CheckChipID confirms that the device on the bus is an OctoQuad with a firmware
// version this driver understands.
func (o *OctoQuad) CheckChipID() error {
	id, err := o.ChipID()
	if err != nil {
		return err
	}
	if id != ExpectedChipID {
		return pkgerrors.Wrapf(ErrWrongChipID, "got 0x%02x, want 0x%02x", id, ExpectedChipID)
	}
	v, err := o.FirmwareVersion()
	if err != nil {
		return err
	}
	if v.Major != SupportedFirmwareMajor {
		fmt.Printf("OctoQuad: warning: firmware v%v, driver written for v%d.x\n", v, SupportedFirmwareMajor)
	}
	return nil
}

func (o *OctoQuad) ChipID() (byte, error) {
	var buf [1]byte
	if err := o.dev.ReadReg(byte(RegChipID), buf[:]); err != nil {
		return 0, pkgerrors.Wrap(err, "read chip ID")
	}
	return buf[0], nil
}

func (o *OctoQuad) FirmwareVersion() (FirmwareVersion, error) {
	var buf [3]byte
	if err := o.dev.ReadReg(byte(RegFirmwareMajor), buf[:]); err != nil {
		return FirmwareVersion{}, pkgerrors.Wrap(err, "read firmware version")
	}
	return FirmwareVersion{Major: buf[0], Minor: buf[1], Engineering: buf[2]}, nil
}

func (o *OctoQuad) ResetEverything() error {
	return o.command(CmdResetEverything)
}

func (o *OctoQuad) ResetAllPositions() error {
	// Data byte is a channel bitmask.
	return o.command(CmdResetEncoders, 0xff)
}

func (o *OctoQuad) SetChannelBankConfig(cfg ChannelBankConfig) error {
	if cfg > BankedQuadraturePulseWidth {
		return &ParamError{Param: "channel bank config", Value: int(cfg)}
	}
	return o.command(CmdSetParam, byte(ParamChannelBankConfig), byte(cfg))
}

func (o *OctoQuad) SetSingleChannelPulseWidthParams(channel int, params PulseWidthParams) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	data := []byte{byte(ParamChannelPulseWidthMinMax), byte(channel), 0, 0, 0, 0}
	binary.LittleEndian.PutUint16(data[2:], uint16(params.MinUS))
	binary.LittleEndian.PutUint16(data[4:], uint16(params.MaxUS))
	return o.command(CmdSetParam, data...)
}

func (o *OctoQuad) SetSingleChannelVelocitySampleInterval(channel int, ms int) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	if ms < MinVelocitySampleIntervalMS || ms > MaxVelocitySampleIntervalMS {
		return &ParamError{Param: "velocity sample interval ms", Value: ms}
	}
	return o.command(CmdSetParam, byte(ParamChannelVelocityInterval), byte(channel), byte(ms))
}

// SetSingleEncoderDirection reverses (or restores) the count direction of one channel,
// leaving the others untouched.
func (o *OctoQuad) SetSingleEncoderDirection(channel int, reversed bool) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	dirs, err := o.readParam(ParamEncoderDirections)
	if err != nil {
		return err
	}
	if reversed {
		dirs |= 1 << uint(channel)
	} else {
		dirs &^= 1 << uint(channel)
	}
	return o.command(CmdSetParam, byte(ParamEncoderDirections), dirs)
}

func (o *OctoQuad) SaveParametersToFlash() error {
	if err := o.command(CmdWriteParamsToFlash); err != nil {
		return err
	}
	time.Sleep(FlashSettleTime)
	return nil
}

func (o *OctoQuad) ReadAllEncoderData(block *EncoderDataBlock) error {
	var buf [dataBlockLen]byte
	if err := o.dev.ReadReg(byte(RegEncoder0Position), buf[:]); err != nil {
		return pkgerrors.Wrap(err, "read encoder data block")
	}
	decodeDataBlock(buf[:], block)
	return nil
}

func (o *OctoQuad) ReadSinglePosition(channel int) (int, error) {
	if err := checkChannel(channel); err != nil {
		return 0, err
	}
	var buf [positionBytes]byte
	reg := byte(RegEncoder0Position) + byte(channel*positionBytes)
	if err := o.dev.ReadReg(reg, buf[:]); err != nil {
		return 0, pkgerrors.Wrapf(err, "read channel %d position", channel)
	}
	return int(int32(binary.LittleEndian.Uint32(buf[:]))), nil
}

func (o *OctoQuad) Close() error {
	return o.dev.Close()
}

func (o *OctoQuad) command(cmd Command, data ...byte) error {
	buf := append([]byte{byte(cmd)}, data...)
	if err := o.dev.WriteReg(byte(RegCommand), buf); err != nil {
		return pkgerrors.Wrapf(err, "send command %d", cmd)
	}
	return nil
}

func (o *OctoQuad) readParam(p Param) (byte, error) {
	if err := o.command(CmdReadParam, byte(p)); err != nil {
		return 0, err
	}
	var buf [1]byte
	if err := o.dev.ReadReg(byte(RegCommandData0), buf[:]); err != nil {
		return 0, pkgerrors.Wrapf(err, "read param %d", p)
	}
	return buf[0], nil
}

func decodeDataBlock(buf []byte, block *EncoderDataBlock) {
	for ch := 0; ch < NumChannels; ch++ {
		pos := buf[ch*positionBytes:]
		block.Positions[ch] = int(int32(binary.LittleEndian.Uint32(pos)))
		vel := buf[NumChannels*positionBytes+ch*velocityBytes:]
		block.Velocities[ch] = int(int16(binary.LittleEndian.Uint16(vel)))
	}
}

func checkChannel(channel int) error {
	if channel < 0 || channel >= NumChannels {
		return &ParamError{Param: "channel", Value: channel}
	}
	return nil
}
