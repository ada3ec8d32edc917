// Package scan runs one label scan at a time through
// Idle → Compressing → Classifying → Result.
//
// Submit only starts the work; it runs on a pipeline goroutine and every
// step is bounded by a timeout. Failures of the optional steps are absorbed:
// an undecodable image yields no thumbnail and a classification that does
// not finish in time yields a CAUTION verdict, so a submitted scan always
// reaches Result unless the pipeline is closed.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodie/internal/client/classifier"
	"github.com/dmitrijs2005/foodie/internal/client/imaging"
	"github.com/dmitrijs2005/foodie/internal/client/models"
	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/dmitrijs2005/foodie/internal/logging"
	"github.com/google/uuid"
)

var (
	ErrClosed    = errors.New("scan pipeline closed")
	ErrNoScan    = errors.New("no scan submitted")
	ErrNotResult = errors.New("scan has not reached a result")
)

const (
	DefaultCompressTimeout = 5 * time.Second
	DefaultClassifyTimeout = 5 * time.Second

	stateBuffer = 16
)

type Compressor interface {
	Compress(ctx context.Context, data []byte) (*imaging.Thumbnail, error)
}

type Profile interface {
	Load(ctx context.Context) (models.AllergenProfile, error)
}

// Recorder receives every finished scan before it is published.
type Recorder interface {
	Append(ctx context.Context, rec models.ScanRecord) error
}

type Config struct {
	CompressTimeout time.Duration
	ClassifyTimeout time.Duration
}

type Deps struct {
	Compressor Compressor
	Detector   classifier.Detector
	Classifier classifier.Classifier
	Profile    Profile
	// Ledger may be nil, in which case results are not recorded.
	Ledger Recorder
	Log    logging.Logger
}

// Outcome is what a scan produced.
type Outcome struct {
	Record    models.ScanRecord
	Verdict   classifier.Verdict
	Signal    classifier.Signal
	Thumbnail *imaging.Thumbnail
	// Degraded is set when classification timed out or failed.
	Degraded bool
	// Recorded is set when the record made it into the ledger.
	Recorded bool
}

type Pipeline struct {
	userID string
	deps   Deps
	cfg    Config
	now    func() time.Time
	newID  func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	outcome *Outcome
	done    chan struct{}
	closed  bool
	states  chan State
}

func New(userID string, deps Deps, cfg Config) *Pipeline {
	if cfg.CompressTimeout <= 0 {
		cfg.CompressTimeout = DefaultCompressTimeout
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = DefaultClassifyTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		userID: userID,
		deps:   deps,
		cfg:    cfg,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		ctx:    ctx,
		cancel: cancel,
		states: make(chan State, stateBuffer),
	}
}

type submitOptions struct {
	detector classifier.Detector
}

type SubmitOption func(*submitOptions)

// WithDetector overrides the detector for a single scan.
func WithDetector(d classifier.Detector) SubmitOption {
	return func(o *submitOptions) { o.detector = d }
}

// Submit starts a scan of image. A nil image is a probe: compression is
// skipped and the scan has no thumbnail. Only valid in Idle; a scan that is
// still running makes Submit fail with common.ErrReentrancyRejected.
func (p *Pipeline) Submit(ctx context.Context, image []byte, opts ...SubmitOption) error {
	o := submitOptions{detector: p.deps.Detector}
	for _, opt := range opts {
		opt(&o)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.state != Idle {
		p.deps.Log.Debug(ctx, "scan rejected", "state", p.state.String())
		return common.ErrReentrancyRejected
	}

	p.outcome = nil
	p.done = make(chan struct{})
	p.setStateLocked(Compressing)

	p.wg.Add(1)
	go p.run(image, o.detector, p.done)

	return nil
}

func (p *Pipeline) run(image []byte, detector classifier.Detector, done chan struct{}) {
	defer p.wg.Done()
	defer close(done)

	log := p.deps.Log

	var thumb *imaging.Thumbnail
	if image != nil {
		thumb = p.compress(image)
	}
	if p.ctx.Err() != nil {
		p.abort()
		return
	}

	p.setState(Classifying)

	verdict, signal, degraded := p.classify(image, detector)
	if p.ctx.Err() != nil {
		p.abort()
		return
	}

	out := &Outcome{
		Verdict:   verdict,
		Signal:    signal,
		Thumbnail: thumb,
		Degraded:  degraded,
		Record: models.ScanRecord{
			ID:                p.newID(),
			UserID:            p.userID,
			Timestamp:         p.now().UTC(),
			Status:            verdict.Status,
			Message:           verdict.Message,
			DetectedAllergens: verdict.Detail,
		},
	}
	if thumb != nil {
		out.Record.Thumbnail = thumb.DataURL
	}

	if p.deps.Ledger != nil {
		if err := p.deps.Ledger.Append(p.ctx, out.Record); err != nil {
			log.Warn(p.ctx, "failed to record scan", "scan_id", out.Record.ID, "error", err)
		} else {
			out.Recorded = true
		}
	}

	p.mu.Lock()
	p.outcome = out
	p.setStateLocked(Result)
	p.mu.Unlock()

	log.Info(p.ctx, "scan finished",
		"scan_id", out.Record.ID, "status", string(verdict.Status),
		"degraded", degraded, "thumbnail", thumb != nil)
}

func (p *Pipeline) compress(image []byte) *imaging.Thumbnail {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.CompressTimeout)
	defer cancel()

	thumb, err := p.deps.Compressor.Compress(ctx, image)
	if err != nil {
		if p.ctx.Err() == nil {
			p.deps.Log.Warn(ctx, "continuing without thumbnail",
				"error", fmt.Errorf("%w: %v", common.ErrImageDecode, err))
		}
		return nil
	}
	return thumb
}

type detection struct {
	verdict classifier.Verdict
	signal  classifier.Signal
	err     error
}

func (p *Pipeline) classify(image []byte, detector classifier.Detector) (classifier.Verdict, classifier.Signal, bool) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.ClassifyTimeout)
	defer cancel()

	prof, err := p.deps.Profile.Load(ctx)
	if err != nil {
		p.deps.Log.Warn(ctx, "profile unavailable, analysis degraded", "error", err)
		return classifier.Degraded(), classifier.Signal{}, true
	}

	res := make(chan detection, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		signal, err := detector.Detect(ctx, image)
		if err != nil {
			res <- detection{err: err}
			return
		}
		res <- detection{verdict: p.deps.Classifier.Classify(prof.Allergens, signal), signal: signal}
	}()

	select {
	case d := <-res:
		if d.err == nil {
			return d.verdict, d.signal, false
		}
		if ctx.Err() == nil {
			p.deps.Log.Warn(ctx, "detector failed, analysis degraded", "error", d.err)
			return classifier.Degraded(), classifier.Signal{}, true
		}
	case <-ctx.Done():
	}

	if p.ctx.Err() == nil {
		p.deps.Log.Warn(ctx, "analysis degraded",
			"timeout", p.cfg.ClassifyTimeout.String(), "error", common.ErrClassificationTimeout)
	}
	return classifier.Degraded(), classifier.Signal{}, true
}

func (p *Pipeline) abort() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcome = nil
	p.setStateLocked(Idle)
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setStateLocked(s)
}

func (p *Pipeline) setStateLocked(s State) {
	p.state = s
	if p.closed {
		return
	}
	select {
	case p.states <- s:
	default:
	}
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Outcome returns the result of the last scan while in Result, else nil.
func (p *Pipeline) Outcome() *Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Result {
		return nil
	}
	return p.outcome
}

// States reports every transition. Slow readers miss transitions rather
// than stall the pipeline. Closed by Close.
func (p *Pipeline) States() <-chan State {
	return p.states
}

// Wait blocks until the submitted scan reaches Result.
func (p *Pipeline) Wait(ctx context.Context) (*Outcome, error) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return nil, ErrNoScan
	}

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outcome == nil {
		return nil, ErrClosed
	}
	return p.outcome, nil
}

// Restart leaves Result for Idle.
func (p *Pipeline) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.state != Result {
		return ErrNotResult
	}
	p.outcome = nil
	p.done = nil
	p.setStateLocked(Idle)
	return nil
}

// Close cancels a running scan and waits for the pipeline goroutines. After
// Close returns nothing more is recorded. Idempotent.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	close(p.states)
}
