package sound

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

const queueTimeout = 10 * time.Millisecond

type Player struct {
	lock   sync.Mutex
	queue  chan string
	closed bool
}

// NewPlayer starts the playback goroutine.  If the speaker can't be opened the player
// still accepts sounds and just logs that it couldn't play them.
func NewPlayer() *Player {
	p := &Player{
		queue: make(chan string),
	}
	go p.loop()
	return p
}

// Play queues a sound, interrupting whatever is playing.  It gives up after a few
// milliseconds rather than hold up the caller.
func (p *Player) Play(path string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed || path == "" {
		return
	}
	select {
	case p.queue <- path:
	case <-time.After(queueTimeout):
		fmt.Println("Sound: timed out trying to play", path)
	}
}

func (p *Player) Close() {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.queue)
}

func (p *Player) drain() {
	for s := range p.queue {
		fmt.Println("Sound: unable to play", s)
	}
}

func (p *Player) loop() {
	defer func() {
		// The audio backend panics on some boards without a sound card.
		if r := recover(); r != nil {
			fmt.Println("Sound: speaker failed:", r)
		}
		p.drain()
	}()

	sampleRate := beep.SampleRate(44100)
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/5)); err != nil {
		fmt.Println("Sound: failed to open speaker", err)
		return
	}

	var ctrl *beep.Ctrl
	var current beep.StreamSeekCloser
	for path := range p.queue {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if current != nil {
			_ = current.Close()
			current = nil
		}

		f, err := os.Open(path)
		if err != nil {
			fmt.Println("Sound: failed to open", path, err)
			continue
		}
		s, _, err := wav.Decode(f)
		if err != nil {
			fmt.Println("Sound: failed to decode", path, err)
			_ = f.Close()
			continue
		}
		current = s
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
	if current != nil {
		_ = current.Close()
	}
}
