package lead

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"luxespace/internal/design"
	"luxespace/internal/detach"
	"luxespace/internal/util/jsonutil"
)

const DefaultTimeout = 15 * time.Second

var ErrDisabled = errors.New("lead webhook url is not configured")

// Webhook posts lead records to a spreadsheet script endpoint.
// The response body is drained but never interpreted.
type Webhook struct {
	url  string
	http *http.Client
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{}
	}
	return &Webhook{url: strings.TrimSpace(url), http: client}
}

func (w *Webhook) Send(ctx context.Context, rec Record) error {
	if w == nil || w.url == "" {
		return ErrDisabled
	}
	body, err := jsonutil.MarshalNoEscape(rec)
	if err != nil {
		return fmt.Errorf("encode lead: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build lead request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("post lead: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("post lead: unexpected status %d", resp.StatusCode)
	}
	return nil
}

type Options struct {
	Webhook  *Webhook
	Runner   *detach.Runner
	Location *time.Location
	Timeout  time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

// Logger is the best-effort lead side channel. Fire never blocks on the
// network and never reports failure to its caller.
type Logger struct {
	webhook *Webhook
	runner  *detach.Runner
	loc     *time.Location
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
}

func NewLogger(opts Options) *Logger {
	l := &Logger{
		webhook: opts.Webhook,
		runner:  opts.Runner,
		loc:     opts.Location,
		timeout: opts.Timeout,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	l.log = l.log.Named("lead")
	if l.runner == nil {
		l.runner = detach.New(l.log)
	}
	if l.timeout <= 0 {
		l.timeout = DefaultTimeout
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// Fire snapshots the lead and submits it on a detached task.
func (l *Logger) Fire(form design.FormData, result *design.AnalysisResult) {
	rec := NewRecord(form, result, l.now(), l.loc)
	if l.webhook == nil || l.webhook.url == "" {
		l.log.Debug("lead webhook disabled, dropping lead", zap.String("phone", rec.Phone))
		return
	}
	l.runner.Go("lead.send", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()
		if err := l.webhook.Send(ctx, rec); err != nil {
			return err
		}
		l.log.Info("lead saved", zap.String("phone", rec.Phone), zap.Bool("has_result", result != nil))
		return nil
	})
}
