// Package flacplayer plays the access cues from flac files through the
// default audio device.
package flacplayer

import (
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/sweeney/mask-gate/internal/audio"
)

// resampleQuality is passed to beep.Resample when clips differ in rate.
const resampleQuality = 4

// Player implements audio.Player with clips decoded into memory.
type Player struct {
	format beep.Format
	clips  map[audio.Clip]*beep.Buffer
}

// New decodes both clips into memory and opens the speaker at the
// sample rate of the granted clip.
func New(grantedPath, deniedPath string) (*Player, error) {
	granted, format, err := loadFLAC(grantedPath, 0)
	if err != nil {
		return nil, fmt.Errorf("load granted clip: %w", err)
	}

	denied, _, err := loadFLAC(deniedPath, format.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("load denied clip: %w", err)
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	return &Player{
		format: format,
		clips: map[audio.Clip]*beep.Buffer{
			audio.ClipGranted: granted,
			audio.ClipDenied:  denied,
		},
	}, nil
}

// loadFLAC decodes a whole file into a buffer. A non-zero rate resamples the
// clip to that rate.
func loadFLAC(path string, rate beep.SampleRate) (*beep.Buffer, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	defer f.Close()

	stream, format, err := flac.Decode(f)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", path, err)
	}
	defer stream.Close()

	var s beep.Streamer = stream
	if rate != 0 && rate != format.SampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, rate, stream)
		format.SampleRate = rate
	}

	buf := beep.NewBuffer(format)
	buf.Append(s)
	return buf, format, nil
}

// Play stops any cue still sounding and starts clip. It does not block.
func (p *Player) Play(clip audio.Clip) error {
	buf, ok := p.clips[clip]
	if !ok {
		return fmt.Errorf("unknown clip %q", clip)
	}
	speaker.Clear()
	speaker.Play(buf.Streamer(0, buf.Len()))
	return nil
}

// Close releases the audio device.
func (p *Player) Close() error {
	speaker.Clear()
	speaker.Close()
	return nil
}
