package design

import (
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// Field names used as keys in validation errors and partial updates.
const (
	FieldName     = "name"
	FieldPhone    = "phone"
	FieldEmail    = "email"
	FieldGender   = "gender"
	FieldRoomType = "roomType"
	FieldStyle    = "style"
	FieldBudget   = "budget"
	FieldNote     = "note"
	FieldImage    = "image"
)

type ContactInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Image is an uploaded room photo. PreviewToken identifies the current
// selection; a new selection or a removal invalidates the old token.
type Image struct {
	Name         string `json:"name"`
	MIMEType     string `json:"mimeType"`
	Data         []byte `json:"-"`
	PreviewToken string `json:"previewToken"`
}

func NewImage(name, mimeType string, data []byte) *Image {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return &Image{
		Name:         strings.TrimSpace(name),
		MIMEType:     mimeType,
		Data:         data,
		PreviewToken: uuid.NewString(),
	}
}

type FormData struct {
	Contact  ContactInfo `json:"contact"`
	Gender   Gender      `json:"gender"`
	RoomType RoomType    `json:"roomType"`
	Style    Style       `json:"style"`
	Budget   Budget      `json:"budget"`
	Note     string      `json:"note"`
	Image    *Image      `json:"image,omitempty"`
}

// DefaultFormData returns the form a new visitor starts with.
func DefaultFormData() FormData {
	return FormData{
		Gender:   GenderMale,
		RoomType: RoomLivingRoom,
		Style:    StyleModern,
		Budget:   BudgetMedium,
	}
}

// Clone returns a copy that shares the image bytes. Image data is never
// mutated after selection, so sharing is safe.
func (f FormData) Clone() FormData {
	out := f
	if f.Image != nil {
		img := *f.Image
		out.Image = &img
	}
	return out
}

var textPolicy = bluemonday.StrictPolicy()

// Sanitize strips markup from user-entered free text. Entities escaped by
// the policy are decoded again since the text is never rendered as HTML here.
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// Apply sets one field from a raw string value.
func (f *FormData) Apply(field, value string) error {
	switch field {
	case FieldName:
		f.Contact.Name = Sanitize(value)
	case FieldPhone:
		f.Contact.Phone = Sanitize(value)
	case FieldEmail:
		f.Contact.Email = Sanitize(value)
	case FieldNote:
		f.Note = Sanitize(value)
	case FieldGender:
		v, err := ParseGender(value)
		if err != nil {
			return err
		}
		f.Gender = v
	case FieldRoomType:
		v, err := ParseRoomType(value)
		if err != nil {
			return err
		}
		f.RoomType = v
	case FieldStyle:
		v, err := ParseStyle(value)
		if err != nil {
			return err
		}
		f.Style = v
	case FieldBudget:
		v, err := ParseBudget(value)
		if err != nil {
			return err
		}
		f.Budget = v
	default:
		return &UnknownFieldError{Field: field}
	}
	return nil
}

type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string { return "unknown form field: " + e.Field }
