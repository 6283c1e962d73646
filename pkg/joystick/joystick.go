package joystick

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

const DefaultDevice = "/dev/input/js0"

type EventType uint8

const (
	EventTypeButton EventType = 1
	EventTypeAxis   EventType = 2

	// Set on the synthetic events the kernel sends on open to report initial state.
	eventTypeInit = 0x80
)

// Button numbers for a DualShock 4 on the hid-sony driver.
const (
	ButtonCross    = 0
	ButtonCircle   = 1
	ButtonTriangle = 2
	ButtonSquare   = 3
	ButtonL1       = 4
	ButtonR1       = 5
	ButtonL2       = 6
	ButtonR2       = 7
	ButtonShare    = 8
	ButtonOptions  = 9
	ButtonPS       = 10
	ButtonLStick   = 11
	ButtonRStick   = 12

	// Aliases for the op mode driver station.
	ButtonStart = ButtonOptions
	ButtonStop  = ButtonPS
)

func (e EventType) String() string {
	switch e {
	case EventTypeAxis:
		return "axis"
	case EventTypeButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

type Event struct {
	Time   time.Time
	Value  int16
	Type   EventType
	Number uint8
	// Initial is true for the state dump the kernel sends when the device is opened.
	Initial bool
}

func (e *Event) String() string {
	return fmt.Sprintf("%v(%v)=%v", e.Type, e.Number, e.Value)
}

// Pressed reports whether the event is a real (non-initial) button-down.
func (e *Event) Pressed() bool {
	return e.Type == EventTypeButton && e.Value == 1 && !e.Initial
}

// js_event from linux/joystick.h.
type rawEvent struct {
	Time   uint32 // ms, arbitrary epoch
	Value  int16
	Type   uint8
	Number uint8
}

type Joystick struct {
	device io.ReadCloser

	deviceEpoch    uint32
	wallclockEpoch time.Time
	sawFirst       bool
}

func Open(device string) (*Joystick, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, err
	}
	return newJoystick(f), nil
}

// OpenFromEnv opens $JOYSTICK_DEVICE, or the default device if that is unset.
func OpenFromEnv() (*Joystick, error) {
	dev := os.Getenv("JOYSTICK_DEVICE")
	if dev == "" {
		dev = DefaultDevice
	}
	return Open(dev)
}

func newJoystick(r io.ReadCloser) *Joystick {
	return &Joystick{device: r}
}

func (j *Joystick) ReadEvent() (*Event, error) {
	var raw rawEvent
	if err := binary.Read(j.device, binary.LittleEndian, &raw); err != nil {
		return nil, err
	}

	if !j.sawFirst {
		j.sawFirst = true
		j.deviceEpoch = raw.Time
		j.wallclockEpoch = time.Now()
	}

	return &Event{
		Time:    j.wallclockEpoch.Add(time.Duration(raw.Time-j.deviceEpoch) * time.Millisecond),
		Value:   raw.Value,
		Type:    EventType(raw.Type &^ eventTypeInit),
		Number:  raw.Number,
		Initial: raw.Type&eventTypeInit != 0,
	}, nil
}

func (j *Joystick) Close() error {
	return j.device.Close()
}

// WatchButtons reads events until the device fails or ctx is done, calling the handler
// registered for each button as it is pressed.  Closing the joystick unblocks it.
func WatchButtons(ctx context.Context, j *Joystick, handlers map[uint8]func()) error {
	for ctx.Err() == nil {
		event, err := j.ReadEvent()
		if err != nil {
			return err
		}
		if !event.Pressed() {
			continue
		}
		if h, ok := handlers[event.Number]; ok {
			fmt.Printf("Joy: %s\n", event)
			h()
		}
	}
	return ctx.Err()
}
