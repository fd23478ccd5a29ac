package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"luxespace/internal/design"
	llmclient "luxespace/internal/llmClient"
)

func validForm() design.FormData {
	f := design.DefaultFormData()
	f.Contact = design.ContactInfo{Name: "An", Phone: "0900000000", Email: "a@b.com"}
	f.Note = "Thêm cây xanh"
	f.Image = design.NewImage("room.jpg", "image/jpeg", []byte("jpeg-bytes"))
	return f
}

func newAnalyzer(fake *llmclient.FakeClient, key string) *Analyzer {
	return New(Options{
		LLM:             fake,
		Credential:      func() string { return key },
		AnalysisTimeout: time.Second,
		RenderTimeout:   100 * time.Millisecond,
	})
}

func TestRunReturnsAllOptionsWithImages(t *testing.T) {
	defer goleak.VerifyNone(t)
	fake := &llmclient.FakeClient{}
	res, err := newAnalyzer(fake, "k").Run(context.Background(), validForm())
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)
	require.NotEmpty(t, res.CurrentSpaceAnalysis)
	require.Len(t, res.Options, 3)
	for _, o := range res.Options {
		require.NotNil(t, o.RenderedImage, o.Title)
		require.Equal(t, "image/png", o.RenderedImage.MIMEType)
	}
	require.Equal(t, 1, fake.JSONCalls())
	require.Equal(t, 3, fake.ImageCalls())
}

func TestRunSendsPromptImageAndSchema(t *testing.T) {
	var got llmclient.JSONRequest
	fake := &llmclient.FakeClient{JSONFunc: func(_ context.Context, req llmclient.JSONRequest) (json.RawMessage, error) {
		got = req
		return json.RawMessage(llmclient.FakeAnalysisJSON), nil
	}}
	var mu sync.Mutex
	var renderPrompts []string
	var renderImages [][]byte
	fake.ImageFunc = func(_ context.Context, req llmclient.ImageRequest) (*llmclient.Blob, error) {
		mu.Lock()
		renderPrompts = append(renderPrompts, req.Prompt)
		renderImages = append(renderImages, req.Image.Data)
		mu.Unlock()
		return nil, nil
	}
	_, err := newAnalyzer(fake, "k").Run(context.Background(), validForm())
	require.NoError(t, err)

	require.Equal(t, "image/jpeg", got.Image.MIMEType)
	require.Equal(t, []byte("jpeg-bytes"), got.Image.Data)
	require.Contains(t, got.Prompt, "Phòng khách")
	require.Contains(t, got.Prompt, "Hiện đại")
	require.Contains(t, got.Prompt, "100 - 300 triệu")
	require.Contains(t, got.Prompt, "Thêm cây xanh")
	require.NotEmpty(t, got.SystemInstruction)
	require.NotNil(t, got.Schema)
	require.Contains(t, got.Schema.Properties, "options")

	require.Len(t, renderPrompts, 3)
	for _, data := range renderImages {
		require.Equal(t, []byte("jpeg-bytes"), data)
	}
	joined := strings.Join(renderPrompts, "\n")
	require.Contains(t, joined, "Tủ âm tường, Sofa module, Đèn rail")
	require.Contains(t, joined, "walls, windows and doors")
}

func TestRunIsolatesRenderFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	fake := &llmclient.FakeClient{ImageFunc: func(_ context.Context, req llmclient.ImageRequest) (*llmclient.Blob, error) {
		if strings.Contains(req.Prompt, "Ấm áp gỗ sồi") {
			return nil, errors.New("quota exceeded")
		}
		return &llmclient.Blob{MIMEType: "image/png", Data: []byte(req.Prompt[:8])}, nil
	}}
	res, err := newAnalyzer(fake, "k").Run(context.Background(), validForm())
	require.NoError(t, err)
	require.NotNil(t, res.Options[0].RenderedImage)
	require.Nil(t, res.Options[1].RenderedImage)
	require.NotNil(t, res.Options[2].RenderedImage)
}

func TestRunToleratesPanicAndMissingImage(t *testing.T) {
	fake := &llmclient.FakeClient{ImageFunc: func(_ context.Context, req llmclient.ImageRequest) (*llmclient.Blob, error) {
		switch {
		case strings.Contains(req.Prompt, "Không gian mở"):
			panic("decoder exploded")
		case strings.Contains(req.Prompt, "Đá cẩm thạch"):
			return &llmclient.Blob{Data: nil}, nil
		}
		return &llmclient.Blob{MIMEType: "image/png", Data: []byte("ok")}, nil
	}}
	res, err := newAnalyzer(fake, "k").Run(context.Background(), validForm())
	require.NoError(t, err)
	require.Nil(t, res.Options[0].RenderedImage)
	require.NotNil(t, res.Options[1].RenderedImage)
	require.Nil(t, res.Options[2].RenderedImage)
}

func TestRunWaitsForSlowRendersAndKeepsOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	delays := map[string]time.Duration{
		"Không gian mở tiện dụng": 60 * time.Millisecond,
		"Ấm áp gỗ sồi":            0,
		"Đá cẩm thạch sang trọng": 30 * time.Millisecond,
	}
	fake := &llmclient.FakeClient{ImageFunc: func(_ context.Context, req llmclient.ImageRequest) (*llmclient.Blob, error) {
		for title, d := range delays {
			if strings.Contains(req.Prompt, title) {
				time.Sleep(d)
				return &llmclient.Blob{MIMEType: "image/png", Data: []byte(title)}, nil
			}
		}
		return nil, errors.New("unexpected prompt")
	}}
	res, err := newAnalyzer(fake, "k").Run(context.Background(), validForm())
	require.NoError(t, err)

	wantOrder := []design.Category{design.CategoryFunctional, design.CategoryAesthetic, design.CategoryPremium}
	for i, o := range res.Options {
		require.Equal(t, wantOrder[i], o.Category)
		require.NotNil(t, o.RenderedImage)
		require.Equal(t, o.Title, string(o.RenderedImage.Data))
	}
}

func TestRunRenderTimeoutLeavesImageUnset(t *testing.T) {
	defer goleak.VerifyNone(t)
	fake := &llmclient.FakeClient{ImageFunc: func(ctx context.Context, req llmclient.ImageRequest) (*llmclient.Blob, error) {
		if strings.Contains(req.Prompt, "Đá cẩm thạch") {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &llmclient.Blob{MIMEType: "image/png", Data: []byte("ok")}, nil
	}}
	start := time.Now()
	res, err := newAnalyzer(fake, "k").Run(context.Background(), validForm())
	require.NoError(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
	require.NotNil(t, res.Options[0].RenderedImage)
	require.NotNil(t, res.Options[1].RenderedImage)
	require.Nil(t, res.Options[2].RenderedImage)
}

func TestRunWithoutCredentialMakesNoCalls(t *testing.T) {
	fake := &llmclient.FakeClient{}
	_, err := newAnalyzer(fake, "").Run(context.Background(), validForm())

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.ErrorIs(t, err, ErrMissingCredential)
	require.Zero(t, fake.JSONCalls())
	require.Zero(t, fake.ImageCalls())

	_, err = New(Options{LLM: fake}).Run(context.Background(), validForm())
	require.ErrorAs(t, err, &cfgErr)
	require.Zero(t, fake.JSONCalls())
}

func TestRunWithoutImageIsInputError(t *testing.T) {
	fake := &llmclient.FakeClient{}
	form := validForm()
	form.Image = nil
	_, err := newAnalyzer(fake, "k").Run(context.Background(), form)

	var inErr *InputError
	require.ErrorAs(t, err, &inErr)
	require.ErrorIs(t, err, ErrMissingImage)
	require.Zero(t, fake.JSONCalls())
}

func TestRunStageOneFailuresAreAnalysisErrors(t *testing.T) {
	cases := []struct {
		name    string
		respond func(ctx context.Context) (json.RawMessage, error)
		is      error
	}{
		{"transport", func(context.Context) (json.RawMessage, error) { return nil, errors.New("503") }, nil},
		{"empty", func(context.Context) (json.RawMessage, error) { return json.RawMessage("  "), nil }, ErrNoContent},
		{"client empty", func(context.Context) (json.RawMessage, error) { return nil, llmclient.ErrEmptyResponse }, ErrNoContent},
		{"garbage", func(context.Context) (json.RawMessage, error) { return json.RawMessage("<html>"), nil }, ErrMalformedResult},
		{"timeout", func(ctx context.Context) (json.RawMessage, error) { <-ctx.Done(); return nil, ctx.Err() }, context.DeadlineExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &llmclient.FakeClient{JSONFunc: func(ctx context.Context, _ llmclient.JSONRequest) (json.RawMessage, error) {
				return tc.respond(ctx)
			}}
			a := New(Options{LLM: fake, Credential: func() string { return "k" }, AnalysisTimeout: 50 * time.Millisecond})
			res, err := a.Run(context.Background(), validForm())
			require.Nil(t, res)
			var aErr *AnalysisError
			require.ErrorAs(t, err, &aErr)
			if tc.is != nil {
				require.ErrorIs(t, err, tc.is)
			}
			require.Zero(t, fake.ImageCalls())
		})
	}
}

func TestRunMapsClientMissingKeyToConfigurationError(t *testing.T) {
	fake := &llmclient.FakeClient{JSONFunc: func(context.Context, llmclient.JSONRequest) (json.RawMessage, error) {
		return nil, llmclient.ErrMissingAPIKey
	}}
	_, err := newAnalyzer(fake, "k").Run(context.Background(), validForm())
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRunStageOnePanicIsAnalysisError(t *testing.T) {
	defer goleak.VerifyNone(t)
	fake := &llmclient.FakeClient{JSONFunc: func(context.Context, llmclient.JSONRequest) (json.RawMessage, error) {
		var seen map[string]bool
		seen["x"] = true
		return nil, nil
	}}

	res, err := newAnalyzer(fake, "k").Run(context.Background(), validForm())

	require.Nil(t, res)
	var aErr *AnalysisError
	require.ErrorAs(t, err, &aErr)
	require.Contains(t, err.Error(), "panic")
	require.Zero(t, fake.ImageCalls())
}
