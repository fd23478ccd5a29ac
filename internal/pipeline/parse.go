package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"luxespace/internal/design"
	"luxespace/internal/util/jsonutil"
)

// wire types keep pointers so a missing field can be told apart from an
// empty one.
type wireResult struct {
	CurrentSpaceAnalysis *string      `json:"currentSpaceAnalysis"`
	Options              []wireOption `json:"options"`
}

type wireOption struct {
	Type          *string   `json:"type"`
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	EstimatedCost *string   `json:"estimatedCost"`
	KeyFeatures   *[]string `json:"keyFeatures"`
}

// parseAnalysis decodes stage-1 output and checks it against the schema:
// a critique string and exactly one option per category, in model order.
func parseAnalysis(raw json.RawMessage) (*design.AnalysisResult, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, ErrNoContent
	}
	var w wireResult
	if err := jsonutil.UnmarshalFlex(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if w.CurrentSpaceAnalysis == nil {
		return nil, fmt.Errorf("%w: currentSpaceAnalysis missing", ErrMalformedResult)
	}
	if len(w.Options) != len(design.Categories) {
		return nil, fmt.Errorf("%w: want %d options, got %d", ErrMalformedResult, len(design.Categories), len(w.Options))
	}

	out := &design.AnalysisResult{
		CurrentSpaceAnalysis: strings.TrimSpace(*w.CurrentSpaceAnalysis),
		Options:              make([]design.DesignOption, 0, len(w.Options)),
	}
	seen := make(map[design.Category]bool, len(w.Options))
	for i, o := range w.Options {
		if o.Type == nil || o.Title == nil || o.Description == nil || o.EstimatedCost == nil || o.KeyFeatures == nil {
			return nil, fmt.Errorf("%w: option %d has missing fields", ErrMalformedResult, i)
		}
		cat := design.Category(strings.ToUpper(strings.TrimSpace(*o.Type)))
		if !cat.Valid() {
			return nil, fmt.Errorf("%w: option %d has unknown type %q", ErrMalformedResult, i, *o.Type)
		}
		if seen[cat] {
			return nil, fmt.Errorf("%w: duplicate option type %s", ErrMalformedResult, cat)
		}
		seen[cat] = true
		features := make([]string, 0, len(*o.KeyFeatures))
		for _, f := range *o.KeyFeatures {
			if f = strings.TrimSpace(f); f != "" {
				features = append(features, f)
			}
		}
		out.Options = append(out.Options, design.DesignOption{
			Category:      cat,
			Title:         strings.TrimSpace(*o.Title),
			Description:   strings.TrimSpace(*o.Description),
			EstimatedCost: strings.TrimSpace(*o.EstimatedCost),
			KeyFeatures:   features,
		})
	}
	return out, nil
}
