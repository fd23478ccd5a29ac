package design

import (
	"encoding/base64"
	"strings"
)

// RenderedImage is a generated redesign of the room for one option.
type RenderedImage struct {
	MIMEType string
	Data     []byte
}

// DataURL encodes the image for inline display.
func (r *RenderedImage) DataURL() string {
	if r == nil || len(r.Data) == 0 {
		return ""
	}
	mime := strings.TrimSpace(r.MIMEType)
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

type DesignOption struct {
	Category      Category `json:"type"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	EstimatedCost string   `json:"estimatedCost"`
	KeyFeatures   []string `json:"keyFeatures"`

	// RenderedImage is nil when rendering failed or produced no image.
	RenderedImage *RenderedImage `json:"-"`
}

type AnalysisResult struct {
	// ID distinguishes results of separate runs.
	ID                   string         `json:"id"`
	CurrentSpaceAnalysis string         `json:"currentSpaceAnalysis"`
	Options              []DesignOption `json:"options"`
}

// Titles returns the option titles in result order.
func (r *AnalysisResult) Titles() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Options))
	for _, o := range r.Options {
		out = append(out, o.Title)
	}
	return out
}
