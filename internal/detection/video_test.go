package detection

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
)

func newTestVideoDetector(t *testing.T, model Model) (*VideoDetector, *media.Previews) {
	t.Helper()
	previews, err := media.NewPreviews(t.TempDir())
	require.NoError(t, err)
	return NewVideoDetector(model, previews, testPollerConfig()), previews
}

func TestVideoDetector_ProcessVideoDoesNotPoll(t *testing.T) {
	model := newFakeModel(&happyScores)
	model.loaded.Store(false)
	v, previews := newTestVideoDetector(t, model)

	preview, err := v.ProcessVideo(context.Background(), strings.NewReader("mp4-bytes"), "video/mp4", 0)
	require.NoError(t, err)
	assert.Equal(t, media.PreviewPathPrefix+preview.ID.String(), preview.URL)
	assert.Equal(t, 1, previews.Len())
	assert.Equal(t, int32(1), model.loads.Load())
	assert.NoError(t, v.LoadErr())

	time.Sleep(30 * time.Millisecond)
	assert.False(t, v.Detecting())
	assert.Zero(t, model.Calls())
}

func TestVideoDetector_LoadFailureIsRecorded(t *testing.T) {
	model := newFakeModel(&happyScores)
	model.loaded.Store(false)
	model.loadErr = assert.AnError
	v, _ := newTestVideoDetector(t, model)

	preview, err := v.ProcessVideo(context.Background(), strings.NewReader("mp4-bytes"), "video/mp4", 0)
	require.NoError(t, err, "load failure is not fatal")
	assert.NotNil(t, v.Preview())
	assert.Equal(t, preview.ID, v.Preview().ID)
	assert.ErrorIs(t, v.LoadErr(), assert.AnError)
}

func TestVideoDetector_StopKeepsResultClearDropsIt(t *testing.T) {
	model := newFakeModel(&happyScores)
	v, previews := newTestVideoDetector(t, model)

	_, err := v.ProcessVideo(context.Background(), strings.NewReader("mp4-bytes"), "video/mp4", 0)
	require.NoError(t, err)

	v.StartVideoDetection(newFakeSource(true))
	require.Eventually(t, func() bool { return v.Result() != nil }, time.Second, 5*time.Millisecond)

	v.StopVideoDetection()
	assert.False(t, v.Detecting())
	require.NotNil(t, v.Result(), "stop keeps the last result")
	assert.Equal(t, emotion.Happy, v.Result().DominantEmotion)

	calls := model.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, model.Calls(), calls+1)

	v.ClearVideo()
	assert.Nil(t, v.Result())
	assert.Nil(t, v.Preview())
	assert.Equal(t, 0, previews.Len())
}

func TestVideoDetector_NewUploadReplacesPrevious(t *testing.T) {
	model := newFakeModel(&happyScores)
	v, previews := newTestVideoDetector(t, model)

	first, err := v.ProcessVideo(context.Background(), strings.NewReader("one"), "video/mp4", 0)
	require.NoError(t, err)
	v.StartVideoDetection(newFakeSource(true))
	require.Eventually(t, func() bool { return v.Result() != nil }, time.Second, 5*time.Millisecond)

	second, err := v.ProcessVideo(context.Background(), strings.NewReader("two"), "video/mp4", 0)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, previews.Len())
	assert.Nil(t, v.Result(), "new upload clears the result")
	assert.False(t, v.Detecting())
}

func TestVideoDetector_SizeLimit(t *testing.T) {
	v, previews := newTestVideoDetector(t, newFakeModel(&happyScores))

	_, err := v.ProcessVideo(context.Background(), strings.NewReader(strings.Repeat("x", 64)), "video/mp4", 16)
	assert.ErrorIs(t, err, media.ErrTooLarge)
	assert.Equal(t, 0, previews.Len())
	assert.Nil(t, v.Preview())
}

// gatedReader blocks its first Read until gate is closed
type gatedReader struct {
	started chan struct{}
	gate    chan struct{}
	once    sync.Once
	done    bool
}

func newGatedReader() *gatedReader {
	return &gatedReader{started: make(chan struct{}), gate: make(chan struct{})}
}

func (r *gatedReader) Read(p []byte) (int, error) {
	r.once.Do(func() { close(r.started) })
	<-r.gate
	if r.done {
		return 0, io.EOF
	}
	r.done = true
	return copy(p, "slow"), nil
}

func TestVideoDetector_OvertakenUploadLeavesNoPreview(t *testing.T) {
	v, previews := newTestVideoDetector(t, newFakeModel(&happyScores))

	slow := newGatedReader()
	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = v.ProcessVideo(context.Background(), slow, "video/mp4", 0)
	}()
	<-slow.started

	fast, err := v.ProcessVideo(context.Background(), strings.NewReader("fast"), "video/mp4", 0)
	require.NoError(t, err)

	close(slow.gate)
	wg.Wait()

	assert.ErrorIs(t, slowErr, domain.ErrSuperseded)
	assert.Equal(t, 1, previews.Len())
	require.NotNil(t, v.Preview())
	assert.Equal(t, fast.ID, v.Preview().ID)
	assert.True(t, v.Current(fast.ID))
}

func TestVideoDetector_ClearDuringUpload(t *testing.T) {
	v, previews := newTestVideoDetector(t, newFakeModel(&happyScores))

	slow := newGatedReader()
	errCh := make(chan error, 1)
	go func() {
		_, err := v.ProcessVideo(context.Background(), slow, "video/mp4", 0)
		errCh <- err
	}()
	<-slow.started

	v.ClearVideo()
	close(slow.gate)

	assert.ErrorIs(t, <-errCh, domain.ErrSuperseded)
	assert.Equal(t, 0, previews.Len())
	assert.Nil(t, v.Preview())
}

func TestVideoDetector_Release(t *testing.T) {
	v, previews := newTestVideoDetector(t, newFakeModel(&happyScores))

	first, err := v.ProcessVideo(context.Background(), strings.NewReader("one"), "video/mp4", 0)
	require.NoError(t, err)
	second, err := v.ProcessVideo(context.Background(), strings.NewReader("two"), "video/mp4", 0)
	require.NoError(t, err)

	v.Release(first.ID)
	assert.True(t, v.Current(second.ID), "releasing a stale id keeps the current preview")
	assert.Equal(t, 1, previews.Len())

	v.Release(second.ID)
	assert.False(t, v.Current(second.ID))
	assert.Nil(t, v.Preview())
	assert.Equal(t, 0, previews.Len())
}
