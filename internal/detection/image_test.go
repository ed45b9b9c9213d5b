package detection

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 640, 320))
	for x := 0; x < 640; x++ {
		img.Set(x, x%320, color.White)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestImageDetector(t *testing.T, model Model) (*ImageDetector, *media.Previews) {
	t.Helper()
	previews, err := media.NewPreviews(t.TempDir())
	require.NoError(t, err)
	return NewImageDetector(model, previews, provider.StillOptions(), Reset), previews
}

func TestImageDetector_ProcessImage(t *testing.T) {
	model := newFakeModel(&happyScores)
	d, previews := newTestImageDetector(t, model)

	res, err := d.ProcessImage(context.Background(), testPNG(t), "image/png")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, emotion.Happy, res.DominantEmotion)
	assert.Equal(t, 90, res.Confidence)
	assert.True(t, res.FaceDetected)
	assert.Equal(t, *res, *d.Result())
	assert.False(t, d.Processing())

	require.NotNil(t, d.Preview())
	assert.Equal(t, 1, previews.Len())

	model.mu.Lock()
	assert.Equal(t, provider.StillInputSize, model.lastOpts.InputSize)
	model.mu.Unlock()
}

func TestImageDetector_RevokesPreviousPreview(t *testing.T) {
	model := newFakeModel(&happyScores)
	d, previews := newTestImageDetector(t, model)

	_, err := d.ProcessImage(context.Background(), testPNG(t), "image/png")
	require.NoError(t, err)
	first := d.Preview()
	require.NotNil(t, first)

	_, err = d.ProcessImage(context.Background(), testPNG(t), "image/png")
	require.NoError(t, err)
	second := d.Preview()
	require.NotNil(t, second)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, previews.Len(), "first preview must be revoked")
	_, ok := previews.Get(first.ID)
	assert.False(t, ok)
}

func TestImageDetector_NoFaceResets(t *testing.T) {
	model := newFakeModel(nil)
	d, _ := newTestImageDetector(t, model)

	res, err := d.ProcessImage(context.Background(), testPNG(t), "image/png")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, emotion.NoFace(), *res)
}

// Without configuration a lost face zeroes the result on both the poller and the image path
func TestNoFaceHandlingIsUniformByDefault(t *testing.T) {
	policies := DefaultPolicies()
	assert.Equal(t, policies.Live, policies.Still)

	model := newFakeModel(&happyScores)
	p := NewPoller(model, testPollerConfig())
	p.Start(newFakeSource(true))
	defer p.Stop()

	require.Eventually(t, func() bool { r := p.Result(); return r != nil && r.FaceDetected }, time.Second, 5*time.Millisecond)
	model.setScores(nil)
	require.Eventually(t, func() bool { return !p.Result().FaceDetected }, time.Second, 5*time.Millisecond)
	pollerResult := *p.Result()

	previews, err := media.NewPreviews(t.TempDir())
	require.NoError(t, err)
	d := NewImageDetector(newFakeModel(nil), previews, provider.StillOptions(), policies.Still)
	imageResult, err := d.ProcessImage(context.Background(), testPNG(t), "image/png")
	require.NoError(t, err)
	require.NotNil(t, imageResult)

	assert.Equal(t, emotion.NoFace(), pollerResult)
	assert.Equal(t, emotion.NoFace(), *imageResult)
}

func TestNoFaceHandlingPerPath(t *testing.T) {
	policies := Policies{Live: KeepLast, Still: Reset}

	model := newFakeModel(&happyScores)
	cfg := testPollerConfig()
	cfg.Policy = policies.Live
	p := NewPoller(model, cfg)
	p.Start(newFakeSource(true))
	defer p.Stop()

	require.Eventually(t, func() bool { r := p.Result(); return r != nil && r.FaceDetected }, time.Second, 5*time.Millisecond)
	model.setScores(nil)
	require.Eventually(t, func() bool { return !p.Result().FaceDetected }, time.Second, 5*time.Millisecond)
	pollerResult := *p.Result()

	previews, err := media.NewPreviews(t.TempDir())
	require.NoError(t, err)
	d := NewImageDetector(newFakeModel(nil), previews, provider.StillOptions(), policies.Still)
	imageResult, err := d.ProcessImage(context.Background(), testPNG(t), "image/png")
	require.NoError(t, err)
	require.NotNil(t, imageResult)

	assert.Equal(t, emotion.Happy, pollerResult.DominantEmotion, "live path keeps the last expression")
	assert.False(t, pollerResult.FaceDetected)
	assert.Positive(t, pollerResult.Confidence)
	assert.Equal(t, emotion.NoFace(), *imageResult, "still path resets")
}

func TestImageDetector_LoadFailure(t *testing.T) {
	model := newFakeModel(&happyScores)
	model.loaded.Store(false)
	model.loadErr = assert.AnError
	d, _ := newTestImageDetector(t, model)

	res, err := d.ProcessImage(context.Background(), testPNG(t), "image/png")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Nil(t, d.Result())
	assert.False(t, d.Processing())
	assert.Zero(t, model.Calls())
}

func TestImageDetector_DecodeFailure(t *testing.T) {
	model := newFakeModel(&happyScores)
	d, _ := newTestImageDetector(t, model)

	res, err := d.ProcessImage(context.Background(), []byte("not an image"), "image/png")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
	assert.Nil(t, d.Result())
	assert.False(t, d.Processing())
	assert.NotNil(t, d.Preview(), "preview is kept so the client can still show the upload")
}

func TestImageDetector_NewerImageSupersedesOlder(t *testing.T) {
	model := newFakeModel(&happyScores)
	gate := make(chan struct{})
	model.gate = gate
	d, previews := newTestImageDetector(t, model)

	data := testPNG(t)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = d.ProcessImage(context.Background(), data, "image/png")
	}()
	require.Eventually(t, func() bool { return model.Calls() == 1 }, time.Second, time.Millisecond)

	model.mu.Lock()
	model.gate = nil
	model.mu.Unlock()
	sad := emotion.Scores{emotion.Sad: 0.8}
	model.setScores(&sad)

	res, err := d.ProcessImage(context.Background(), data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, emotion.Sad, res.DominantEmotion)

	close(gate)
	wg.Wait()

	assert.ErrorIs(t, firstErr, domain.ErrSuperseded)
	var appErr *domain.AppError
	require.ErrorAs(t, firstErr, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)
	assert.Equal(t, emotion.Sad, d.Result().DominantEmotion)
	assert.Equal(t, 1, previews.Len())
}

func TestImageDetector_ClearResult(t *testing.T) {
	model := newFakeModel(&happyScores)
	d, previews := newTestImageDetector(t, model)

	_, err := d.ProcessImage(context.Background(), testPNG(t), "image/png")
	require.NoError(t, err)

	d.ClearResult()
	assert.Nil(t, d.Result())
	assert.Nil(t, d.Preview())
	assert.Equal(t, 0, previews.Len())
}
