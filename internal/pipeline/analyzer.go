package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"luxespace/internal/design"
	llmclient "luxespace/internal/llmClient"
)

const (
	DefaultAnalysisTimeout = 60 * time.Second
	DefaultRenderTimeout   = 90 * time.Second
)

type Options struct {
	LLM llmclient.Client
	// Credential is read on every run; an empty value fails the run before
	// any network call.
	Credential      func() string
	AnalysisTimeout time.Duration
	RenderTimeout   time.Duration
	Logger          *zap.Logger
}

// Analyzer runs the two-stage analysis: one structured call, then one
// render call per option.
type Analyzer struct {
	llm             llmclient.Client
	credential      func() string
	analysisTimeout time.Duration
	renderTimeout   time.Duration
	log             *zap.Logger
}

func New(opts Options) *Analyzer {
	a := &Analyzer{
		llm:             opts.LLM,
		credential:      opts.Credential,
		analysisTimeout: opts.AnalysisTimeout,
		renderTimeout:   opts.RenderTimeout,
		log:             opts.Logger,
	}
	if a.analysisTimeout <= 0 {
		a.analysisTimeout = DefaultAnalysisTimeout
	}
	if a.renderTimeout <= 0 {
		a.renderTimeout = DefaultRenderTimeout
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	a.log = a.log.Named("pipeline")
	return a
}

// Run analyzes the room photo in form. Only stage-1 failures are returned;
// a failed render leaves that option without an image.
func (a *Analyzer) Run(ctx context.Context, form design.FormData) (*design.AnalysisResult, error) {
	if a.credential == nil || strings.TrimSpace(a.credential()) == "" {
		return nil, &ConfigurationError{Err: ErrMissingCredential}
	}
	if a.llm == nil {
		return nil, &ConfigurationError{Err: errors.New("ai client is not configured")}
	}
	if form.Image == nil || len(form.Image.Data) == 0 {
		return nil, &InputError{Err: ErrMissingImage}
	}
	img := llmclient.Blob{MIMEType: form.Image.MIMEType, Data: form.Image.Data}

	result, err := a.analyze(ctx, img, form)
	if err != nil {
		return nil, err
	}
	result.ID = uuid.NewString()
	result.Options = a.renderAll(ctx, img, result.Options)
	return result, nil
}

// analyze runs stage 1. A panic in the client or the parser becomes an
// AnalysisError like any other stage-1 failure.
func (a *Analyzer) analyze(ctx context.Context, img llmclient.Blob, form design.FormData) (result *design.AnalysisResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			a.log.Error("analysis panicked", zap.Any("panic", p), zap.Stack("stack"))
			result, err = nil, &AnalysisError{Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, a.analysisTimeout)
	defer cancel()

	start := time.Now()
	raw, err := a.llm.GenerateJSON(ctx, llmclient.JSONRequest{
		SystemInstruction: systemInstruction,
		Prompt:            analysisPrompt(form),
		Image:             img,
		Schema:            analysisSchema(),
	})
	if err != nil {
		if errors.Is(err, llmclient.ErrMissingAPIKey) {
			return nil, &ConfigurationError{Err: err}
		}
		if errors.Is(err, llmclient.ErrEmptyResponse) {
			err = fmt.Errorf("%w: %v", ErrNoContent, err)
		}
		return nil, &AnalysisError{Err: err}
	}
	result, err = parseAnalysis(raw)
	if err != nil {
		return nil, &AnalysisError{Err: err}
	}
	a.log.Info("analysis complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Strings("titles", result.Titles()),
	)
	return result, nil
}

// renderAll requests one image per option concurrently and waits for every
// attempt to settle. Each task turns its own failure into a nil image, so
// the group never observes an error and no task cancels another.
func (a *Analyzer) renderAll(ctx context.Context, img llmclient.Blob, options []design.DesignOption) []design.DesignOption {
	images := make([]*design.RenderedImage, len(options))
	var g errgroup.Group
	for i := range options {
		opt := options[i]
		g.Go(func() error {
			images[i] = a.render(ctx, img, i, opt)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]design.DesignOption, len(options))
	for i, opt := range options {
		opt.RenderedImage = images[i]
		out[i] = opt
	}
	return out
}

func (a *Analyzer) render(ctx context.Context, img llmclient.Blob, idx int, opt design.DesignOption) (out *design.RenderedImage) {
	ctx, cancel := context.WithTimeout(ctx, a.renderTimeout)
	defer cancel()

	fields := []zap.Field{zap.Int("option", idx), zap.String("category", string(opt.Category))}
	defer func() {
		if r := recover(); r != nil {
			a.log.Warn("render panicked", append(fields, zap.Any("panic", r))...)
			out = nil
		}
	}()

	blob, err := a.llm.GenerateImage(ctx, llmclient.ImageRequest{Prompt: renderPrompt(opt), Image: img})
	if err != nil {
		a.log.Warn("render failed", append(fields, zap.Error(err))...)
		return nil
	}
	if blob == nil || len(blob.Data) == 0 {
		a.log.Info("render returned no image", fields...)
		return nil
	}
	return &design.RenderedImage{MIMEType: blob.MIMEType, Data: blob.Data}
}
