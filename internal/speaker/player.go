package speaker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player renders a PCM buffer on an audio device, blocking until playback
// finishes or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, pcm []byte) error
	Close() error
}

// OtoPlayer plays 16-bit little-endian mono PCM through the system audio
// device. The oto context is created once; device initialization is the
// expensive part and must not happen per utterance.
type OtoPlayer struct {
	ctx        *oto.Context
	sampleRate int
}

var _ Player = (*OtoPlayer)(nil)

// NewOtoPlayer initializes the audio device and waits for it to become ready.
func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	if sampleRate != 44100 && sampleRate != 48000 {
		return nil, fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", sampleRate)
	}

	octx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing audio device: %w", err)
	}
	<-ready

	return &OtoPlayer{ctx: octx, sampleRate: sampleRate}, nil
}

// Play blocks until the buffer has been rendered. Cancellation stops playback
// mid-utterance; the remainder is discarded, not resumed.
func (p *OtoPlayer) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return errors.New("empty pcm buffer")
	}

	// The reader must stay referenced until playback completes or the
	// device reads stale memory and produces static.
	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close releases the player. The oto context itself has no Close in v3; it is
// garbage collected once unreferenced.
func (p *OtoPlayer) Close() error {
	p.ctx = nil
	return nil
}

// NopPlayer discards audio. Used for headless operation and tests.
type NopPlayer struct{}

var _ Player = NopPlayer{}

func (NopPlayer) Play(context.Context, []byte) error { return nil }
func (NopPlayer) Close() error                       { return nil }
