package screen

import (
	"image"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
	pkgerrors "github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/octopulse/pkg/telemetry"
)

const (
	DefaultDevice = "/dev/fb1"

	Size       = 128
	lineHeight = 12
	maxLines   = Size / lineHeight
)

type Sink struct {
	lock sync.Mutex
	f    *os.File
}

var _ telemetry.Sink = (*Sink)(nil)

func Open(device string) (*Sink, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0666)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open framebuffer")
	}
	return &Sink{f: f}, nil
}

func (s *Sink) Transmit(frame telemetry.Frame) error {
	buf := ToRGB565(Render(frame))

	s.lock.Lock()
	defer s.lock.Unlock()
	return s.write(buf)
}

// Close blanks the panel and releases the framebuffer.
func (s *Sink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	_ = s.write(make([]byte, Size*Size*2))
	return s.f.Close()
}

func (s *Sink) write(buf []byte) error {
	if _, err := s.f.Seek(0, 0); err != nil {
		return err
	}
	// The panel's SPI driver drops data if we write the whole frame in one go.
	for row := 0; row < Size; row++ {
		if _, err := s.f.Write(buf[row*Size*2 : (row+1)*Size*2]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}

// Render draws the frame's text, amber on black, one line per row.
func Render(frame telemetry.Frame) image.Image {
	dc := gg.NewContext(Size, Size)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGBA(1, 0.9, 0, 1)

	lines := frame.Text()
	if len(lines) > maxLines {
		// Newest data is at the bottom.
		lines = lines[len(lines)-maxLines:]
	}
	for i, l := range lines {
		dc.DrawString(l, 2, float64((i+1)*lineHeight-2))
	}
	return dc.Image()
}

// ToRGB565 packs an image into the panel's framebuffer layout: 16 bits per pixel, little
// endian, rotated a quarter turn to match how the panel is mounted.
func ToRGB565(img image.Image) []byte {
	buf := make([]byte, Size*Size*2)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			off := (Size-1-y)*2 + x*Size*2
			buf[off+1] = (rb << 3) | (gb >> 3)
			buf[off] = bb | (gb << 5)
		}
	}
	return buf
}
