package opmode

import (
	"context"
	"fmt"
	"sync"

	"github.com/tigerbot-team/tigerbot/octopulse/pkg/hardwaremap"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/telemetry"
)

type State int

const (
	StateInit State = iota
	StateWaitForStart
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateWaitForStart:
		return "wait-for-start"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Runtime is what the host hands to a running op mode.
type Runtime interface {
	HardwareMap() hardwaremap.Interface
	Telemetry() telemetry.Interface

	// WaitForStart blocks until the operator presses start, or the op mode is stopped
	// first (in which case OpModeIsActive is false from then on).
	WaitForStart()
	// OpModeIsActive should be checked once per loop iteration; false means return.
	OpModeIsActive() bool
}

type OpMode interface {
	Name() string
	RunOpMode(rt Runtime) error
}

// Chime plays operator feedback sounds.
type Chime interface {
	Play(path string)
}

type Config struct {
	HardwareMap hardwaremap.Interface
	Telemetry   telemetry.Interface

	Chime      Chime
	StartSound string
	StopSound  string
}

type Host struct {
	cfg Config

	lock    sync.Mutex
	state   State
	started chan struct{}
	stopped chan struct{}
}

var _ Runtime = (*Host)(nil)

func NewHost(cfg Config) *Host {
	return &Host{
		cfg:     cfg,
		started: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (h *Host) HardwareMap() hardwaremap.Interface {
	return h.cfg.HardwareMap
}

func (h *Host) Telemetry() telemetry.Interface {
	return h.cfg.Telemetry
}

func (h *Host) State() State {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.state
}

// Start is the operator's start signal.  It is accepted before the op mode reaches
// WaitForStart and remembered until it does.
func (h *Host) Start() {
	h.lock.Lock()
	defer h.lock.Unlock()
	select {
	case <-h.started:
		return
	case <-h.stopped:
		return
	default:
	}
	fmt.Println("Host: start pressed")
	close(h.started)
	if h.state == StateWaitForStart {
		h.setStateLocked(StateActive)
	}
}

// Stop is the operator's stop signal.
func (h *Host) Stop() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.stopLocked()
}

func (h *Host) stopLocked() {
	select {
	case <-h.stopped:
		return
	default:
	}
	close(h.stopped)
	h.setStateLocked(StateStopped)
}

func (h *Host) WaitForStart() {
	h.lock.Lock()
	if h.state == StateInit {
		select {
		case <-h.started:
			h.setStateLocked(StateActive)
		default:
			h.setStateLocked(StateWaitForStart)
		}
	}
	h.lock.Unlock()

	select {
	case <-h.started:
	case <-h.stopped:
	}
}

func (h *Host) OpModeIsActive() bool {
	select {
	case <-h.stopped:
		return false
	default:
	}
	return h.State() == StateActive
}

func (h *Host) setStateLocked(s State) {
	if s == h.state {
		return
	}
	fmt.Printf("Host: %v -> %v\n", h.state, s)
	h.state = s
	if h.cfg.Chime == nil {
		return
	}
	switch s {
	case StateActive:
		h.cfg.Chime.Play(h.cfg.StartSound)
	case StateStopped:
		h.cfg.Chime.Play(h.cfg.StopSound)
	}
}

// Run runs the op mode on the calling goroutine.  A Host runs one op mode, once.
// Cancelling ctx acts like the operator pressing stop.  A panic in the op mode is turned
// into an error.
func (h *Host) Run(ctx context.Context, mode OpMode) (err error) {
	fmt.Printf("----- %s -----\n", mode.Name())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			h.Stop()
		case <-h.stopped:
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("op mode %q panicked: %v", mode.Name(), r)
		}
		h.Stop()
		if err != nil {
			fmt.Printf("Host: %s failed: %v\n", mode.Name(), err)
		} else {
			fmt.Printf("Host: %s finished\n", mode.Name())
		}
	}()

	return mode.RunOpMode(h)
}
