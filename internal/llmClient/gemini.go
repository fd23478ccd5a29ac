package llmclient

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	genai "google.golang.org/genai"
)

const (
	DefaultAnalysisModel = "gemini-2.5-flash"
	DefaultImageModel    = "gemini-2.5-flash-image"
)

// KeyFunc returns the current API key. It is consulted on every call so a
// rotated or removed key takes effect without a restart.
type KeyFunc func() string

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Logging is applied via Middleware.
type GeminiClient struct {
	key           KeyFunc
	analysisModel string
	imageModel    string

	mu     sync.Mutex
	cli    *genai.Client
	cliKey string
}

func NewGeminiClient(key KeyFunc, analysisModel, imageModel string) *GeminiClient {
	if strings.TrimSpace(analysisModel) == "" {
		analysisModel = DefaultAnalysisModel
	}
	if strings.TrimSpace(imageModel) == "" {
		imageModel = DefaultImageModel
	}
	return &GeminiClient{key: key, analysisModel: analysisModel, imageModel: imageModel}
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.analysisModel + "+" + g.imageModel }

func (g *GeminiClient) client(ctx context.Context) (*genai.Client, error) {
	key := ""
	if g.key != nil {
		key = strings.TrimSpace(g.key())
	}
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cli != nil && g.cliKey == key {
		return g.cli, nil
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	g.cli, g.cliKey = cli, key
	return cli, nil
}

// GenerateJSON sends the image and prompt, asks for application/json and
// returns the model's JSON text as json.RawMessage.
func (g *GeminiClient) GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error) {
	cli, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if s := strings.TrimSpace(req.SystemInstruction); s != "" {
		cfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}
	resp, err := cli.Models.GenerateContent(ctx, g.analysisModel, imageContents(req.Image, req.Prompt), cfg)
	if err != nil {
		return nil, err
	}
	txt := responseText(resp)
	if txt == "" {
		return nil, ErrEmptyResponse
	}
	return json.RawMessage(txt), nil
}

// GenerateImage returns the first inline image of the first candidate.
func (g *GeminiClient) GenerateImage(ctx context.Context, req ImageRequest) (*Blob, error) {
	cli, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := cli.Models.GenerateContent(ctx, g.imageModel, imageContents(req.Image, req.Prompt), nil)
	if err != nil {
		return nil, err
	}
	return firstInlineImage(resp), nil
}

func imageContents(img Blob, prompt string) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromBytes(img.Data, img.MIMEType), genai.NewPartFromText(prompt)}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

func firstInlineImage(resp *genai.GenerateContentResponse) *Blob {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
			continue
		}
		mime := p.InlineData.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return &Blob{MIMEType: mime, Data: p.InlineData.Data}
	}
	return nil
}
