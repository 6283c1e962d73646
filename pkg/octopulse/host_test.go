package octopulse

import (
	"context"
	"strings"
	"testing"

	"github.com/tigerbot-team/tigerbot/octopulse/pkg/hardwaremap"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/opmode"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/telemetry"
)

// stopAfterDistance presses stop as soon as a distance frame has been displayed.
type stopAfterDistance struct {
	host   *opmode.Host
	frames []telemetry.Frame
}

func (s *stopAfterDistance) Transmit(f telemetry.Frame) error {
	s.frames = append(s.frames, f)
	for _, l := range f.Lines {
		if l.Caption == "distance mm" {
			s.host.Stop()
		}
	}
	return nil
}

func TestRunsUnderHostWithDummyOctoQuad(t *testing.T) {
	cfg, err := hardwaremap.Parse([]byte(`
devices:
  - name: octoquad
    driver: dummy
    dummy_positions: [0, 0, 0, 0, 0, 0, 42, 0]
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hw := hardwaremap.New(cfg)
	defer hw.Close()

	sink := &stopAfterDistance{}
	tel := telemetry.New(sink)
	host := opmode.NewHost(opmode.Config{HardwareMap: hw, Telemetry: tel})
	sink.host = host
	host.Start()

	if err := host.Run(context.Background(), New(DefaultConfig())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host.State() != opmode.StateStopped {
		t.Errorf("host state %v after run", host.State())
	}

	var text []string
	for _, f := range sink.frames {
		text = append(text, f.Text()...)
	}
	joined := strings.Join(text, "\n")
	if !strings.Contains(joined, "OctoQuad Firmware v2.0.0") {
		t.Errorf("firmware line missing from %q", joined)
	}
	if !strings.Contains(joined, "distance mm : 42") {
		t.Errorf("distance missing from %q", joined)
	}
}
