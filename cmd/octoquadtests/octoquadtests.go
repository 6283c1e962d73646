package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/tigerbot-team/tigerbot/octopulse/pkg/elapsed"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/movingstats"
	"github.com/tigerbot-team/tigerbot/octopulse/pkg/octoquad"
)

func main() {
	var (
		bus            = flag.String("bus", "/dev/i2c-1", "I2C device file")
		addr           = flag.Int("addr", octoquad.DefaultAddr, "OctoQuad I2C address")
		pulseWidth     = flag.Bool("pulse-width", false, "put all channels in pulse-width mode")
		velocityMS     = flag.Int("velocity-interval", 0, "velocity sample interval in ms for every channel; 0 leaves it alone")
		resetPositions = flag.Bool("reset-positions", false, "zero every channel's position before reading")
		reverse        = flag.Int("reverse", -1, "reverse the count direction of this channel")
		channel        = flag.Int("channel", -1, "read only this channel's position instead of the whole data block")
		period         = flag.Duration("period", 500*time.Millisecond, "time between reads")
	)
	flag.Parse()

	fmt.Println("OctoQuad test program")
	oq, err := octoquad.NewI2C(*bus, *addr)
	if err != nil {
		panic(err)
	}
	defer oq.Close()

	if err := oq.CheckChipID(); err != nil {
		panic(err)
	}
	v, err := oq.FirmwareVersion()
	if err != nil {
		panic(err)
	}
	fmt.Println("Found OctoQuad firmware", v)

	if err := oq.ResetEverything(); err != nil {
		panic(err)
	}
	if *pulseWidth {
		if err := oq.SetChannelBankConfig(octoquad.AllPulseWidth); err != nil {
			panic(err)
		}
	}
	if *velocityMS != 0 {
		for ch := 0; ch < octoquad.NumChannels; ch++ {
			if err := oq.SetSingleChannelVelocitySampleInterval(ch, *velocityMS); err != nil {
				panic(err)
			}
		}
	}
	if *reverse >= 0 {
		if err := oq.SetSingleEncoderDirection(*reverse, true); err != nil {
			panic(err)
		}
		fmt.Println("Reversed channel", *reverse)
	}
	if *resetPositions {
		if err := oq.ResetAllPositions(); err != nil {
			panic(err)
		}
		fmt.Println("Positions reset")
	}

	// Time taken by each read, to spot a slow or flaky bus.
	readTime := movingstats.New(20)
	sw := elapsed.New()

	var block octoquad.EncoderDataBlock
	for range time.NewTicker(*period).C {
		sw.Reset()
		if *channel >= 0 {
			pos, err := oq.ReadSinglePosition(*channel)
			if err != nil {
				fmt.Println("Read failed:", err)
				continue
			}
			readTime.Add(sw.Milliseconds())
			fmt.Printf("ch%d pos %d", *channel, pos)
		} else {
			if err := oq.ReadAllEncoderData(&block); err != nil {
				fmt.Println("Read failed:", err)
				continue
			}
			readTime.Add(sw.Milliseconds())
			fmt.Printf("pos %v vel %v", block.Positions, block.Velocities)
		}
		fmt.Printf(" read %.2f±%.2fms\n", readTime.Mean(), readTime.StdDev())
	}
}
