package scan

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/foodie/internal/client/classifier"
	"github.com/dmitrijs2005/foodie/internal/client/imaging"
	"github.com/dmitrijs2005/foodie/internal/client/models"
	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProfile struct {
	tokens []models.Token
	err    error
}

func (p staticProfile) Load(ctx context.Context) (models.AllergenProfile, error) {
	return models.AllergenProfile{UserID: "u-1", Allergens: p.tokens}, p.err
}

type memLedger struct {
	mu      sync.Mutex
	records []models.ScanRecord
	err     error
}

func (l *memLedger) Append(ctx context.Context, rec models.ScanRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.records = append(l.records, rec)
	return nil
}

func (l *memLedger) all() []models.ScanRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ScanRecord(nil), l.records...)
}

// gatedDetector blocks until release is closed or ctx ends.
type gatedDetector struct {
	tokens  []models.Token
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedDetector(tokens ...models.Token) *gatedDetector {
	return &gatedDetector{tokens: tokens, started: make(chan struct{}), release: make(chan struct{})}
}

func (d *gatedDetector) Detect(ctx context.Context, _ []byte) (classifier.Signal, error) {
	d.once.Do(func() { close(d.started) })
	select {
	case <-d.release:
		return classifier.Signal{Tokens: d.tokens, Source: "test"}, nil
	case <-ctx.Done():
		return classifier.Signal{}, ctx.Err()
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newPipeline(t *testing.T, det classifier.Detector, prof []models.Token, led Recorder, cfg Config) *Pipeline {
	t.Helper()
	p := New("u-1", Deps{
		Compressor: imaging.NewCompressor(0, 0),
		Detector:   det,
		Classifier: classifier.NewTriageClassifier(nil),
		Profile:    staticProfile{tokens: prof},
		Ledger:     led,
		Log:        logging.NewNop(),
	}, cfg)
	t.Cleanup(p.Close)
	return p
}

func wait(t *testing.T, p *Pipeline) *Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := p.Wait(ctx)
	require.NoError(t, err)
	return out
}

func TestSubmit_DangerIsRecordedWithThumbnail(t *testing.T) {
	led := &memLedger{}
	det := &classifier.SimulatedDetector{Tokens: []models.Token{"peanut", "milk"}}
	p := newPipeline(t, det, []models.Token{"peanut", "milk"}, led, Config{})

	require.NoError(t, p.Submit(context.Background(), pngBytes(t, 600, 400)))
	out := wait(t, p)

	assert.Equal(t, Result, p.State())
	assert.Equal(t, models.StatusDanger, out.Verdict.Status)
	assert.Equal(t, []models.Token{"peanut", "milk"}, out.Verdict.Detail)
	assert.False(t, out.Degraded)
	assert.True(t, out.Recorded)
	require.NotNil(t, out.Thumbnail)
	assert.Equal(t, 300, out.Thumbnail.Width)
	assert.Equal(t, 200, out.Thumbnail.Height)

	records := led.all()
	require.Len(t, records, 1)
	assert.Equal(t, out.Record, records[0])
	assert.Equal(t, "u-1", records[0].UserID)
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, out.Thumbnail.DataURL, records[0].Thumbnail)
	assert.Same(t, out, p.Outcome())
}

func TestSubmit_RejectedWhileBusy(t *testing.T) {
	led := &memLedger{}
	det := newGatedDetector("shrimp")
	p := newPipeline(t, det, []models.Token{"shrimp"}, led, Config{})

	require.NoError(t, p.Submit(context.Background(), nil))
	<-det.started

	for i := 0; i < 3; i++ {
		err := p.Submit(context.Background(), nil)
		assert.ErrorIs(t, err, common.ErrReentrancyRejected)
	}

	close(det.release)
	out := wait(t, p)
	assert.Equal(t, models.StatusDanger, out.Verdict.Status)

	// still rejected in Result until Restart
	assert.ErrorIs(t, p.Submit(context.Background(), nil), common.ErrReentrancyRejected)
	assert.Len(t, led.all(), 1)
}

func TestSubmit_ClassificationTimeoutDegrades(t *testing.T) {
	led := &memLedger{}
	det := newGatedDetector("peanut")
	p := newPipeline(t, det, []models.Token{"peanut"}, led, Config{ClassifyTimeout: 20 * time.Millisecond})

	require.NoError(t, p.Submit(context.Background(), nil))
	out := wait(t, p)

	assert.True(t, out.Degraded)
	assert.Equal(t, classifier.Degraded(), out.Verdict)
	assert.Equal(t, models.StatusCaution, out.Record.Status)
	assert.Len(t, led.all(), 1)
}

func TestSubmit_DetectorErrorDegrades(t *testing.T) {
	det := detectorFunc(func(ctx context.Context, _ []byte) (classifier.Signal, error) {
		return classifier.Signal{}, errors.New("camera unplugged")
	})
	p := newPipeline(t, det, []models.Token{"egg"}, &memLedger{}, Config{})

	require.NoError(t, p.Submit(context.Background(), nil))
	out := wait(t, p)
	assert.True(t, out.Degraded)
	assert.Equal(t, models.StatusCaution, out.Verdict.Status)
}

func TestSubmit_ProfileErrorDegrades(t *testing.T) {
	p := New("u-1", Deps{
		Compressor: imaging.NewCompressor(0, 0),
		Detector:   &classifier.SimulatedDetector{Tokens: []models.Token{"egg"}},
		Classifier: classifier.NewTriageClassifier(nil),
		Profile:    staticProfile{err: errors.New("disk gone")},
		Log:        logging.NewNop(),
	}, Config{})
	t.Cleanup(p.Close)

	require.NoError(t, p.Submit(context.Background(), nil))
	out := wait(t, p)
	assert.True(t, out.Degraded)
	assert.False(t, out.Recorded)
}

func TestSubmit_UndecodableImageHasNoThumbnail(t *testing.T) {
	led := &memLedger{}
	det := &classifier.SimulatedDetector{}
	p := newPipeline(t, det, nil, led, Config{})

	require.NoError(t, p.Submit(context.Background(), []byte("not an image")))
	out := wait(t, p)

	assert.Nil(t, out.Thumbnail)
	assert.Empty(t, out.Record.Thumbnail)
	assert.Equal(t, models.StatusSafe, out.Verdict.Status)
	assert.Len(t, led.all(), 1)
}

func TestSubmit_LedgerFailureStillReachesResult(t *testing.T) {
	led := &memLedger{err: errors.New("detached")}
	p := newPipeline(t, &classifier.SimulatedDetector{}, nil, led, Config{})

	require.NoError(t, p.Submit(context.Background(), nil))
	out := wait(t, p)
	assert.False(t, out.Recorded)
	assert.Equal(t, Result, p.State())
}

func TestSubmit_WithDetectorOverride(t *testing.T) {
	p := newPipeline(t, &classifier.SimulatedDetector{}, []models.Token{"egg"}, nil, Config{})

	text := &classifier.IngredientTextDetector{Text: "Wheat flour, sugar, whole eggs."}
	require.NoError(t, p.Submit(context.Background(), nil, WithDetector(text)))
	out := wait(t, p)
	assert.Equal(t, models.StatusCaution, out.Verdict.Status)
	assert.Equal(t, "ingredients", out.Signal.Source)
}

func TestRestart(t *testing.T) {
	led := &memLedger{}
	p := newPipeline(t, &classifier.SimulatedDetector{}, nil, led, Config{})

	assert.ErrorIs(t, p.Restart(), ErrNotResult)
	_, err := p.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNoScan)

	require.NoError(t, p.Submit(context.Background(), nil))
	wait(t, p)
	require.NoError(t, p.Restart())
	assert.Equal(t, Idle, p.State())
	assert.Nil(t, p.Outcome())

	require.NoError(t, p.Submit(context.Background(), nil))
	wait(t, p)
	assert.Len(t, led.all(), 2)
}

func TestClose_CancelsInFlightScanWithoutRecording(t *testing.T) {
	led := &memLedger{}
	det := newGatedDetector("peanut")
	p := newPipeline(t, det, []models.Token{"peanut"}, led, Config{})

	require.NoError(t, p.Submit(context.Background(), nil))
	<-det.started

	p.Close()
	p.Close()

	assert.Empty(t, led.all())
	_, err := p.Wait(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Submit(context.Background(), nil), ErrClosed)
	assert.ErrorIs(t, p.Restart(), ErrClosed)
}

func TestStates_ReportsTransitions(t *testing.T) {
	p := newPipeline(t, &classifier.SimulatedDetector{}, nil, nil, Config{})

	require.NoError(t, p.Submit(context.Background(), nil))
	wait(t, p)
	require.NoError(t, p.Restart())
	p.Close()

	var seen []State
	for s := range p.States() {
		seen = append(seen, s)
	}
	assert.Equal(t, []State{Compressing, Classifying, Result, Idle}, seen)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "classifying", Classifying.String())
	assert.Equal(t, "unknown", State(42).String())
}

type detectorFunc func(ctx context.Context, image []byte) (classifier.Signal, error)

func (f detectorFunc) Detect(ctx context.Context, image []byte) (classifier.Signal, error) {
	return f(ctx, image)
}
