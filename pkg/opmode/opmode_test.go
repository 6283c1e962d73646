package opmode

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type funcOpMode func(rt Runtime) error

func (f funcOpMode) Name() string {
	return "test"
}

func (f funcOpMode) RunOpMode(rt Runtime) error {
	return f(rt)
}

type recordingChime struct {
	lock   sync.Mutex
	played []string
}

func (c *recordingChime) Play(path string) {
	c.lock.Lock()
	c.played = append(c.played, path)
	c.lock.Unlock()
}

func waitForState(t *testing.T, h *Host, s State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.State() != s {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %v, state is %v", s, h.State())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLifecycle(t *testing.T) {
	chime := &recordingChime{}
	h := NewHost(Config{Chime: chime, StartSound: "start.wav", StopSound: "stop.wav"})

	iterations := 0
	done := make(chan error)
	go func() {
		done <- h.Run(context.Background(), funcOpMode(func(rt Runtime) error {
			if rt.OpModeIsActive() {
				t.Error("op mode should not be active before start")
			}
			rt.WaitForStart()
			for rt.OpModeIsActive() {
				iterations++
				if iterations == 5 {
					h.Stop()
				}
			}
			return nil
		}))
	}()

	waitForState(t, h, StateWaitForStart)
	h.Start()

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iterations != 5 {
		t.Errorf("ran %d iterations, expected exactly 5", iterations)
	}
	if h.State() != StateStopped {
		t.Errorf("state = %v, expected stopped", h.State())
	}
	if strings.Join(chime.played, ",") != "start.wav,stop.wav" {
		t.Errorf("chimes played: %v", chime.played)
	}
}

func TestStartBeforeWaitForStart(t *testing.T) {
	h := NewHost(Config{})
	h.Start()

	err := h.Run(context.Background(), funcOpMode(func(rt Runtime) error {
		rt.WaitForStart()
		if !rt.OpModeIsActive() {
			return errors.New("expected to be active")
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStopBeforeStart(t *testing.T) {
	h := NewHost(Config{})
	ran := false
	go func() {
		for h.State() != StateWaitForStart {
			time.Sleep(time.Millisecond)
		}
		h.Stop()
	}()

	err := h.Run(context.Background(), funcOpMode(func(rt Runtime) error {
		rt.WaitForStart()
		if rt.OpModeIsActive() {
			ran = true
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ran {
		t.Errorf("loop body ran after stop without start")
	}
	h.Start()
	if h.State() != StateStopped {
		t.Errorf("start after stop should be ignored, state %v", h.State())
	}
}

func TestContextCancelStops(t *testing.T) {
	h := NewHost(Config{})
	h.Start()
	ctx, cancel := context.WithCancel(context.Background())

	err := h.Run(ctx, funcOpMode(func(rt Runtime) error {
		rt.WaitForStart()
		n := 0
		for rt.OpModeIsActive() {
			n++
			if n == 3 {
				cancel()
			}
			time.Sleep(time.Millisecond)
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestErrorsAndPanicsAreReturned(t *testing.T) {
	devErr := errors.New("bus stalled")
	h := NewHost(Config{})
	err := h.Run(context.Background(), funcOpMode(func(rt Runtime) error {
		return devErr
	}))
	if !errors.Is(err, devErr) {
		t.Errorf("expected the op mode's error, got %v", err)
	}

	h = NewHost(Config{})
	err = h.Run(context.Background(), funcOpMode(func(rt Runtime) error {
		panic("index out of range")
	}))
	if err == nil || !strings.Contains(err.Error(), "index out of range") {
		t.Errorf("expected panic as error, got %v", err)
	}
	if h.State() != StateStopped {
		t.Errorf("state after panic = %v", h.State())
	}
}
