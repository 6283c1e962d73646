package joystick

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"
	"time"
)

func encode(events ...rawEvent) io.ReadCloser {
	var buf bytes.Buffer
	for _, e := range events {
		_ = binary.Write(&buf, binary.LittleEndian, e)
	}
	return io.NopCloser(&buf)
}

func TestReadEvent(t *testing.T) {
	j := newJoystick(encode(
		rawEvent{Time: 5000, Value: 0, Type: 0x81, Number: ButtonOptions},
		rawEvent{Time: 5250, Value: 1, Type: 0x01, Number: ButtonOptions},
		rawEvent{Time: 5300, Value: -32767, Type: 0x02, Number: 1},
	))

	first, err := j.ReadEvent()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Initial || first.Type != EventTypeButton {
		t.Errorf("first event = %+v, expected initial button state", first)
	}
	if first.Pressed() {
		t.Errorf("initial state should not count as a press")
	}

	press, err := j.ReadEvent()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !press.Pressed() || press.Number != ButtonStart {
		t.Errorf("second event = %+v, expected start press", press)
	}
	if d := press.Time.Sub(first.Time); d != 250*time.Millisecond {
		t.Errorf("event spacing = %v, expected 250ms", d)
	}

	axis, err := j.ReadEvent()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if axis.Type != EventTypeAxis || axis.Value != -32767 {
		t.Errorf("third event = %+v", axis)
	}

	if _, err := j.ReadEvent(); err == nil {
		t.Errorf("expected error at end of stream")
	}
}

func TestWatchButtons(t *testing.T) {
	j := newJoystick(encode(
		rawEvent{Time: 1, Value: 1, Type: 0x81, Number: ButtonStart}, // initial: ignored
		rawEvent{Time: 2, Value: 1, Type: 0x01, Number: ButtonCross}, // no handler
		rawEvent{Time: 3, Value: 1, Type: 0x01, Number: ButtonStart},
		rawEvent{Time: 4, Value: 0, Type: 0x01, Number: ButtonStart}, // release
		rawEvent{Time: 5, Value: 1, Type: 0x01, Number: ButtonStop},
	))

	var got []string
	err := WatchButtons(context.Background(), j, map[uint8]func(){
		ButtonStart: func() { got = append(got, "start") },
		ButtonStop:  func() { got = append(got, "stop") },
	})
	if err != io.EOF {
		t.Errorf("expected EOF at end of events, got %v", err)
	}
	if len(got) != 2 || got[0] != "start" || got[1] != "stop" {
		t.Errorf("handlers called %v, expected [start stop]", got)
	}
}
