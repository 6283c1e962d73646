package telemetry

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const DefaultTransmissionInterval = 250 * time.Millisecond

type DisplayFormat int

const (
	// Classic renders data lines as "caption : value".
	Classic DisplayFormat = iota
	// Monospace pads captions to a common width so values line up.
	Monospace
)

func (f DisplayFormat) String() string {
	switch f {
	case Classic:
		return "classic"
	case Monospace:
		return "monospace"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// Line is either a free-text line (IsData false) or a caption/value pair.
type Line struct {
	Caption string
	Value   string
	IsData  bool
}

// Frame is one committed screenful of telemetry.
type Frame struct {
	Time   time.Time
	Format DisplayFormat
	Lines  []Line
}

// Text renders the frame as plain text lines in its display format.
func (f Frame) Text() []string {
	width := 0
	if f.Format == Monospace {
		for _, l := range f.Lines {
			if l.IsData && len(l.Caption) > width {
				width = len(l.Caption)
			}
		}
	}
	var out []string
	for _, l := range f.Lines {
		if !l.IsData {
			out = append(out, strings.Split(l.Caption, "\n")...)
			continue
		}
		out = append(out, fmt.Sprintf("%-*s : %s", width, l.Caption, l.Value))
	}
	return out
}

// Sink is somewhere frames are displayed.
type Sink interface {
	Transmit(f Frame) error
}

type Interface interface {
	AddLine(text string)
	AddData(caption string, value interface{})
	AddDataf(caption string, format string, args ...interface{})
	SetDisplayFormat(format DisplayFormat)
	SetMsTransmissionInterval(ms int)
	Update() bool
}

type Telemetry struct {
	lock sync.Mutex

	sinks    []Sink
	pending  []Line
	format   DisplayFormat
	interval time.Duration
	lastTx   time.Time
	now      func() time.Time
}

var _ Interface = (*Telemetry)(nil)

func New(sinks ...Sink) *Telemetry {
	return &Telemetry{
		sinks:    sinks,
		interval: DefaultTransmissionInterval,
		now:      time.Now,
	}
}

// SetClock replaces the clock used for rate limiting.
func (t *Telemetry) SetClock(now func() time.Time) {
	t.lock.Lock()
	t.now = now
	t.lock.Unlock()
}

func (t *Telemetry) AddSink(s Sink) {
	t.lock.Lock()
	t.sinks = append(t.sinks, s)
	t.lock.Unlock()
}

func (t *Telemetry) AddLine(text string) {
	t.lock.Lock()
	t.pending = append(t.pending, Line{Caption: text})
	t.lock.Unlock()
}

func (t *Telemetry) AddData(caption string, value interface{}) {
	t.addData(caption, fmt.Sprint(value))
}

func (t *Telemetry) AddDataf(caption string, format string, args ...interface{}) {
	t.addData(caption, fmt.Sprintf(format, args...))
}

func (t *Telemetry) addData(caption, value string) {
	t.lock.Lock()
	t.pending = append(t.pending, Line{Caption: caption, Value: value, IsData: true})
	t.lock.Unlock()
}

func (t *Telemetry) SetDisplayFormat(format DisplayFormat) {
	t.lock.Lock()
	t.format = format
	t.lock.Unlock()
}

func (t *Telemetry) SetMsTransmissionInterval(ms int) {
	if ms < 0 {
		ms = 0
	}
	t.lock.Lock()
	t.interval = time.Duration(ms) * time.Millisecond
	t.lock.Unlock()
}

// Update commits the pending lines.  The frame is only passed on to the sinks if the
// transmission interval has passed since the previous one; otherwise it is dropped and
// Update returns false.  Either way the pending lines are cleared.
func (t *Telemetry) Update() bool {
	t.lock.Lock()
	lines := t.pending
	t.pending = nil
	now := t.now()
	if !t.lastTx.IsZero() && now.Sub(t.lastTx) < t.interval {
		t.lock.Unlock()
		return false
	}
	t.lastTx = now
	frame := Frame{
		Time:   now,
		Format: t.format,
		Lines:  lines,
	}
	sinks := t.sinks
	t.lock.Unlock()

	for _, s := range sinks {
		if err := s.Transmit(frame); err != nil {
			fmt.Println("Telemetry: failed to transmit frame:", err)
		}
	}
	return true
}

// ConsoleSink prints each frame to a writer, separated by a rule.
type ConsoleSink struct {
	W io.Writer
}

func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{W: os.Stdout}
}

func (c *ConsoleSink) Transmit(f Frame) error {
	var sb strings.Builder
	sb.WriteString("----------------\n")
	for _, l := range f.Text() {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(c.W, sb.String())
	return err
}
