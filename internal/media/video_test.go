package media

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDecoder records the positions it was asked for
type fakeDecoder struct {
	duration time.Duration
	reads    []time.Duration
	closed   bool
}

func (d *fakeDecoder) Duration() time.Duration { return d.duration }

func (d *fakeDecoder) ReadAt(pos time.Duration) ([]byte, int, int, error) {
	d.reads = append(d.reads, pos)
	return []byte{0xff, 0xd8}, 320, 240, nil
}

func (d *fakeDecoder) Close() error {
	d.closed = true
	return nil
}

func newTestVideo(duration time.Duration) (*VideoFile, *fakeDecoder, *fakeClock) {
	decoder := &fakeDecoder{duration: duration}
	clock := newFakeClock()
	v := NewVideoFile(decoder)
	v.now = clock.Now
	return v, decoder, clock
}

func TestVideoFile_Playback(t *testing.T) {
	v, decoder, clock := newTestVideo(10 * time.Second)

	assert.False(t, v.Ready(), "not ready before play")

	v.Play()
	assert.True(t, v.Ready())

	clock.Advance(3 * time.Second)
	assert.Equal(t, 3*time.Second, v.Position())

	frame, err := v.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, frame.Position)
	assert.Equal(t, []time.Duration{3 * time.Second}, decoder.reads)

	v.Pause()
	assert.False(t, v.Ready(), "paused video is not ready")
	clock.Advance(5 * time.Second)
	assert.Equal(t, 3*time.Second, v.Position())

	v.Play()
	clock.Advance(8 * time.Second)
	assert.True(t, v.Ended())
	assert.False(t, v.Ready(), "ended video is not ready")
	assert.Equal(t, 10*time.Second, v.Position())

	state := v.State()
	assert.True(t, state.Ended)
	assert.False(t, state.Playing)
	assert.Equal(t, int64(10000), state.DurationMs)

	v.Play()
	assert.Equal(t, time.Duration(0), v.Position(), "play after end restarts")
	assert.True(t, v.Ready())
}

func TestVideoFile_Seek(t *testing.T) {
	v, _, clock := newTestVideo(10 * time.Second)

	v.Seek(4 * time.Second)
	assert.Equal(t, 4*time.Second, v.Position())

	v.Play()
	clock.Advance(time.Second)
	assert.Equal(t, 5*time.Second, v.Position())

	v.Seek(-time.Second)
	assert.Equal(t, time.Duration(0), v.Position())

	v.Seek(time.Minute)
	assert.True(t, v.Ended())
}

func TestVideoFile_Close(t *testing.T) {
	v, decoder, _ := newTestVideo(time.Second)
	v.Play()

	require.NoError(t, v.Close())
	require.NoError(t, v.Close())
	assert.True(t, decoder.closed)
	assert.False(t, v.Ready())

	_, err := v.FrameAt(0)
	assert.ErrorIs(t, err, ErrSourceClosed)
}

func TestOpenVideoDecoder_InvalidFile(t *testing.T) {
	_, err := OpenVideoDecoder("does-not-exist.mp4")
	assert.ErrorIs(t, err, ErrInvalidVideo)
}
