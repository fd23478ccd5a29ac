package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"luxespace/internal/design"
	"luxespace/internal/gateway/repository/render"
	"luxespace/internal/wizard"
)

// View is what one screen needs. Exactly one of Form, Result or Unlock is
// set, matching Step; Intro and Analyzing carry no payload.
type View struct {
	SessionID string      `json:"sessionId"`
	Version   uint64      `json:"version"`
	Step      wizard.Step `json:"step"`
	Error     string      `json:"error,omitempty"`
	Form      *FormView   `json:"form,omitempty"`
	Result    *ResultView `json:"result,omitempty"`
	Unlock    *UnlockView `json:"unlock,omitempty"`
}

type FormView struct {
	Values      FormValues         `json:"values"`
	FieldErrors design.FieldErrors `json:"fieldErrors"`
	Image       *ImageView         `json:"image,omitempty"`
	Choices     Choices            `json:"choices"`
}

type FormValues struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Gender   string `json:"gender"`
	RoomType string `json:"roomType"`
	Style    string `json:"style"`
	Budget   string `json:"budget"`
	Note     string `json:"note"`
}

type ImageView struct {
	Name       string `json:"name"`
	MIMEType   string `json:"mimeType"`
	PreviewURL string `json:"previewUrl"`
}

type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Choices struct {
	Gender   []Choice `json:"gender"`
	RoomType []Choice `json:"roomType"`
	Style    []Choice `json:"style"`
	Budget   []Choice `json:"budget"`
}

type ResultView struct {
	ID                   string       `json:"id"`
	CurrentSpaceAnalysis string       `json:"currentSpaceAnalysis"`
	Options              []OptionView `json:"options"`
}

type OptionView struct {
	Type          design.Category `json:"type"`
	TypeLabel     string          `json:"typeLabel"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	EstimatedCost string          `json:"estimatedCost"`
	KeyFeatures   []string        `json:"keyFeatures"`
	ImageURL      string          `json:"imageUrl,omitempty"`
}

type UnlockView struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

var formChoices = Choices{
	Gender:   choices(design.GenderMale, design.GenderFemale, design.GenderOther),
	RoomType: choices(design.RoomLivingRoom, design.RoomKitchen, design.RoomBedroom, design.RoomOffice, design.RoomOther),
	Style:    choices(design.StyleModern, design.StyleMinimalist, design.StyleNeoclassical, design.StyleLuxury, design.StyleJapandi),
	Budget:   choices(design.BudgetLow, design.BudgetMedium, design.BudgetHigh),
}

func choices[T interface {
	~string
	Label() string
}](values ...T) []Choice {
	out := make([]Choice, 0, len(values))
	for _, v := range values {
		out = append(out, Choice{Value: string(v), Label: v.Label()})
	}
	return out
}

type viewBuilder struct {
	renders render.Store
	log     *zap.Logger
}

func (b viewBuilder) build(ctx context.Context, id string, s wizard.Snapshot) View {
	v := View{SessionID: id, Version: s.Version, Step: s.Step}
	switch s.Step {
	case wizard.StepForm:
		v.Error = s.Error
		v.Form = formView(id, s)
	case wizard.StepResult:
		if s.Result != nil {
			v.Result = b.resultView(ctx, id, s.Result)
		}
	case wizard.StepUnlock:
		v.Unlock = &UnlockView{Name: s.Form.Contact.Name, Phone: s.Form.Contact.Phone}
	}
	return v
}

func formView(id string, s wizard.Snapshot) *FormView {
	f := s.Form
	fv := &FormView{
		Values: FormValues{
			Name:     f.Contact.Name,
			Phone:    f.Contact.Phone,
			Email:    f.Contact.Email,
			Gender:   string(f.Gender),
			RoomType: string(f.RoomType),
			Style:    string(f.Style),
			Budget:   string(f.Budget),
			Note:     f.Note,
		},
		FieldErrors: s.FieldErrors,
		Choices:     formChoices,
	}
	if f.Image != nil {
		fv.Image = &ImageView{
			Name:       f.Image.Name,
			MIMEType:   f.Image.MIMEType,
			PreviewURL: fmt.Sprintf("/api/sessions/%s/image/%s", id, f.Image.PreviewToken),
		}
	}
	return fv
}

func (b viewBuilder) resultView(ctx context.Context, id string, r *design.AnalysisResult) *ResultView {
	rv := &ResultView{
		ID:                   r.ID,
		CurrentSpaceAnalysis: r.CurrentSpaceAnalysis,
		Options:              make([]OptionView, 0, len(r.Options)),
	}
	for i, o := range r.Options {
		ov := OptionView{
			Type:          o.Category,
			TypeLabel:     o.Category.Label(),
			Title:         o.Title,
			Description:   o.Description,
			EstimatedCost: o.EstimatedCost,
			KeyFeatures:   o.KeyFeatures,
		}
		if o.RenderedImage != nil {
			ov.ImageURL = b.imageURL(ctx, id, r.ID, i, o.RenderedImage)
		}
		rv.Options = append(rv.Options, ov)
	}
	return rv
}

// imageURL falls back to the session's own image endpoint when the render
// store cannot publish.
func (b viewBuilder) imageURL(ctx context.Context, id, resultID string, idx int, img *design.RenderedImage) string {
	if b.renders != nil {
		url, err := b.renders.Publish(ctx, render.Key(id, resultID, idx), img)
		if err == nil && url != "" {
			return url
		}
		if err != nil {
			b.log.Warn("publish render failed", zap.String("session", id), zap.Int("option", idx), zap.Error(err))
		}
	}
	return fmt.Sprintf("/api/sessions/%s/options/%d/image", id, idx)
}
