package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/octopulse/pkg/hardwaremap"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/octopulse"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/opmode"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/screen"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/sound"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/telemetry"
)

type options struct {
	configFile string
	autostart  bool
	screenDev  string
	startSound string
	stopSound  string
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", hardwaremap.ConfigPath(), "hardware map YAML file")
	flag.BoolVar(&opts.autostart, "autostart", false, "start immediately instead of waiting for the operator")
	flag.StringVar(&opts.screenDev, "screen", screen.DefaultDevice, "framebuffer for telemetry; empty to disable")
	flag.StringVar(&opts.startSound, "start-sound", "", "wav to play on start")
	flag.StringVar(&opts.stopSound, "stop-sound", "", "wav to play on stop")
	flag.Parse()

	fmt.Println("---- OctoQuad pulse distance ----")

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	if err := run(ctx, opts); err != nil {
		log.Fatalf("Op mode failed: %v", err)
	}
}

// run owns every device it opens; they're all closed by the time it returns.
func run(ctx context.Context, opts options) error {
	cfg, err := hardwaremap.Load(opts.configFile)
	if err != nil {
		return pkgerrors.Wrap(err, "load hardware map")
	}
	hw := hardwaremap.New(cfg)
	defer func() {
		if err := hw.Close(); err != nil {
			fmt.Println("Failed to close hardware:", err)
		}
	}()

	tel := telemetry.New(telemetry.NewConsoleSink())
	if opts.screenDev != "" {
		lcd, err := screen.Open(opts.screenDev)
		if err != nil {
			fmt.Println("Failed to open screen, ignoring:", err)
		} else {
			defer lcd.Close()
			tel.AddSink(lcd)
		}
	}

	hostCfg := opmode.Config{
		HardwareMap: hw,
		Telemetry:   tel,
		StartSound:  opts.startSound,
		StopSound:   opts.stopSound,
	}
	if opts.startSound != "" || opts.stopSound != "" {
		player := sound.NewPlayer()
		defer player.Close()
		hostCfg.Chime = player
	}
	host := opmode.NewHost(hostCfg)

	if opts.autostart {
		host.Start()
	} else {
		go watchStdin(host)
		go watchJoystick(ctx, host)
	}

	return host.Run(ctx, octopulse.New(octopulse.DefaultConfig()))
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		// Give the loop a chance to finish its iteration, then bail out regardless.
		time.Sleep(2 * time.Second)
		os.Exit(1)
	}()
}

// watchStdin treats Enter as the start button.
func watchStdin(host *opmode.Host) {
	r := bufio.NewReader(os.Stdin)
	if _, err := r.ReadString('\n'); err != nil {
		return
	}
	host.Start()
}

func watchJoystick(ctx context.Context, host *opmode.Host) {
	j, err := joystick.OpenFromEnv()
	if err != nil {
		fmt.Println("No joystick, press Enter to start:", err)
		return
	}
	go func() {
		<-ctx.Done()
		_ = j.Close()
	}()
	fmt.Println("Opened joystick; Options starts, PS stops")
	err = joystick.WatchButtons(ctx, j, map[uint8]func(){
		joystick.ButtonStart: host.Start,
		joystick.ButtonStop:  host.Stop,
	})
	if ctx.Err() == nil {
		fmt.Println("Joystick failed:", err)
	}
}
