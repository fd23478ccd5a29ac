package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"luxespace/internal/design"
)

// Analyzer produces design concepts for a frozen form.
type Analyzer interface {
	Run(ctx context.Context, form design.FormData) (*design.AnalysisResult, error)
}

// LeadLogger records a lead without blocking. result is nil on failure.
type LeadLogger interface {
	Fire(form design.FormData, result *design.AnalysisResult)
}

// Snapshot is a consistent copy of the machine state. Result is shared and
// must be treated as read-only.
type Snapshot struct {
	Version     uint64
	Step        Step
	Form        design.FormData
	FieldErrors design.FieldErrors
	Result      *design.AnalysisResult
	Error       string
}

// Machine is the wizard controller. It owns the form, the last result and
// the banner error, and is the only thing that changes them.
type Machine struct {
	analyzer Analyzer
	leads    LeadLogger
	log      *zap.Logger

	mu          sync.Mutex
	version     uint64
	run         uint64
	step        Step
	form        design.FormData
	fieldErrors design.FieldErrors
	result      *design.AnalysisResult
	errMsg      string

	nextSub int
	subs    map[int]chan Snapshot
}

func New(analyzer Analyzer, leads LeadLogger, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Machine{
		analyzer: analyzer,
		leads:    leads,
		log:      logger.Named("wizard"),
		subs:     make(map[int]chan Snapshot),
	}
	m.resetLocked()
	return m
}

func (m *Machine) resetLocked() {
	m.step = StepIntro
	m.form = design.DefaultFormData()
	m.fieldErrors = design.FieldErrors{}
	m.result = nil
	m.errMsg = ""
	m.run++
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	errs := make(design.FieldErrors, len(m.fieldErrors))
	for k, v := range m.fieldErrors {
		errs[k] = v
	}
	return Snapshot{
		Version:     m.version,
		Step:        m.step,
		Form:        m.form.Clone(),
		FieldErrors: errs,
		Result:      m.result,
		Error:       m.errMsg,
	}
}

// Start moves from the intro screen to the form.
func (m *Machine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepIntro {
		return ErrInvalidTransition
	}
	m.step = StepForm
	m.changedLocked()
	return nil
}

// Update sets one form field and clears only that field's error.
func (m *Machine) Update(field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepForm {
		return ErrInvalidTransition
	}
	if err := m.form.Apply(field, value); err != nil {
		return err
	}
	m.fieldErrors = m.fieldErrors.Without(field)
	m.changedLocked()
	return nil
}

// SelectImage replaces the uploaded photo. The previous preview token stops
// resolving.
func (m *Machine) SelectImage(img *design.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepForm {
		return ErrInvalidTransition
	}
	m.form.Image = img
	m.fieldErrors = m.fieldErrors.Without(design.FieldImage)
	m.changedLocked()
	return nil
}

func (m *Machine) RemoveImage() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepForm {
		return ErrInvalidTransition
	}
	m.form.Image = nil
	m.changedLocked()
	return nil
}

// Validate reports the current form's field errors without changing state.
func (m *Machine) Validate() design.FieldErrors {
	m.mu.Lock()
	defer m.mu.Unlock()
	return design.Validate(m.form)
}

// Submit validates the form and, when valid, runs the analysis to completion.
// An invalid form stays on the form step and returns the field errors with
// ErrInvalidForm. A pipeline failure is absorbed into state (back to the form
// with a banner) and also returned to the caller for logging.
func (m *Machine) Submit(ctx context.Context) (design.FieldErrors, error) {
	run, errs, err := m.Begin()
	if err != nil {
		return errs, err
	}
	return nil, run(ctx)
}

// Begin is the synchronous half of Submit: it validates, freezes the form and
// enters the analyzing step. The returned func runs the analysis and applies
// its outcome; callers may run it on another goroutine.
func (m *Machine) Begin() (func(ctx context.Context) error, design.FieldErrors, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepForm {
		return nil, nil, ErrInvalidTransition
	}
	if errs := design.Validate(m.form); !errs.Valid() {
		m.fieldErrors = errs
		m.changedLocked()
		return nil, errs, ErrInvalidForm
	}
	m.fieldErrors = design.FieldErrors{}
	m.errMsg = ""
	m.result = nil
	m.step = StepAnalyzing
	m.run++
	run := m.run
	frozen := m.form.Clone()
	m.changedLocked()

	return func(ctx context.Context) error {
		return m.finish(ctx, run, frozen)
	}, nil, nil
}

func (m *Machine) finish(ctx context.Context, run uint64, frozen design.FormData) error {
	start := time.Now()
	result, err := m.analyze(ctx, frozen)

	m.mu.Lock()
	stale := m.run != run || m.step != StepAnalyzing
	switch {
	case stale:
	case err != nil:
		m.step = StepForm
		m.errMsg = UserMessage(err)
		m.changedLocked()
	default:
		m.result = result
		m.errMsg = ""
		m.step = StepResult
		m.changedLocked()
	}
	m.mu.Unlock()

	if err != nil {
		result = nil
		m.log.Warn("analysis failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
	}
	if m.leads != nil {
		m.leads.Fire(frozen, result)
	}
	if stale {
		return ErrRunDiscarded
	}
	return err
}

// analyze runs the analyzer, turning a panic into an error so the machine
// always leaves the analyzing step.
func (m *Machine) analyze(ctx context.Context, form design.FormData) (result *design.AnalysisResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			result, err = nil, fmt.Errorf("wizard: analyzer panicked: %v", p)
		}
	}()
	return m.analyzer.Run(ctx, form)
}

// Unlock records the user's interest in a consultation.
func (m *Machine) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepResult {
		return ErrInvalidTransition
	}
	m.step = StepUnlock
	m.changedLocked()
	return nil
}

// Reset returns to the intro with a fresh form from any step. An analysis in
// flight keeps running but its outcome is dropped.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	m.changedLocked()
}

// Subscribe streams snapshots, starting with the current one. Slow readers
// only see the latest state. The channel closes when ctx is done.
func (m *Machine) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.snapshotLocked()
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, id)
		close(ch)
		m.mu.Unlock()
	}()
	return ch
}

func (m *Machine) changedLocked() {
	m.version++
	if len(m.subs) == 0 {
		return
	}
	snap := m.snapshotLocked()
	for _, ch := range m.subs {
		pushLatest(ch, snap)
	}
}

func pushLatest(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
