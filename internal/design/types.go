package design

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownChoice is wrapped by the Parse functions for values outside the
// fixed option set.
var ErrUnknownChoice = errors.New("unknown choice")

// Gender of the lead. Values are wire codes; Label returns the localized text.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

type RoomType string

const (
	RoomLivingRoom RoomType = "LIVING_ROOM"
	RoomKitchen    RoomType = "KITCHEN"
	RoomBedroom    RoomType = "BEDROOM"
	RoomOffice     RoomType = "OFFICE"
	RoomOther      RoomType = "OTHER"
)

type Style string

const (
	StyleModern       Style = "MODERN"
	StyleMinimalist   Style = "MINIMALIST"
	StyleNeoclassical Style = "NEOCLASSICAL"
	StyleLuxury       Style = "LUXURY"
	StyleJapandi      Style = "JAPANDI"
)

// Budget is an opaque range label, never a number.
type Budget string

const (
	BudgetLow    Budget = "LOW"
	BudgetMedium Budget = "MEDIUM"
	BudgetHigh   Budget = "HIGH"
)

// Category tags one of the three proposed concepts.
type Category string

const (
	CategoryFunctional Category = "FUNCTIONAL"
	CategoryAesthetic  Category = "AESTHETIC"
	CategoryPremium    Category = "PREMIUM"
)

// Categories lists the option categories in the order the analysis asks for them.
var Categories = []Category{CategoryFunctional, CategoryAesthetic, CategoryPremium}

var genderLabels = map[Gender]string{
	GenderMale:   "Nam",
	GenderFemale: "Nữ",
	GenderOther:  "Khác",
}

var roomLabels = map[RoomType]string{
	RoomLivingRoom: "Phòng khách",
	RoomKitchen:    "Phòng bếp",
	RoomBedroom:    "Phòng ngủ",
	RoomOffice:     "Phòng làm việc",
	RoomOther:      "Khác",
}

var styleLabels = map[Style]string{
	StyleModern:       "Hiện đại",
	StyleMinimalist:   "Tối giản",
	StyleNeoclassical: "Tân cổ điển",
	StyleLuxury:       "Luxury",
	StyleJapandi:      "Japandi",
}

var budgetLabels = map[Budget]string{
	BudgetLow:    "Dưới 100 triệu",
	BudgetMedium: "100 - 300 triệu",
	BudgetHigh:   "Trên 300 triệu",
}

var categoryLabels = map[Category]string{
	CategoryFunctional: "Tối ưu công năng",
	CategoryAesthetic:  "Thẩm mỹ cảm xúc",
	CategoryPremium:    "Cao cấp bền vững",
}

func (g Gender) Label() string   { return genderLabels[g] }
func (r RoomType) Label() string { return roomLabels[r] }
func (s Style) Label() string    { return styleLabels[s] }
func (b Budget) Label() string   { return budgetLabels[b] }
func (c Category) Label() string { return categoryLabels[c] }

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseGender accepts a wire code or a localized label.
func ParseGender(raw string) (Gender, error) {
	v, ok := parseEnum(raw, genderLabels)
	if !ok {
		return "", fmt.Errorf("%w for gender: %q", ErrUnknownChoice, raw)
	}
	return v, nil
}

func ParseRoomType(raw string) (RoomType, error) {
	v, ok := parseEnum(raw, roomLabels)
	if !ok {
		return "", fmt.Errorf("%w for room type: %q", ErrUnknownChoice, raw)
	}
	return v, nil
}

func ParseStyle(raw string) (Style, error) {
	v, ok := parseEnum(raw, styleLabels)
	if !ok {
		return "", fmt.Errorf("%w for style: %q", ErrUnknownChoice, raw)
	}
	return v, nil
}

func ParseBudget(raw string) (Budget, error) {
	v, ok := parseEnum(raw, budgetLabels)
	if !ok {
		return "", fmt.Errorf("%w for budget: %q", ErrUnknownChoice, raw)
	}
	return v, nil
}

func parseEnum[T ~string](raw string, labels map[T]string) (T, bool) {
	raw = strings.TrimSpace(raw)
	for code, label := range labels {
		if strings.EqualFold(raw, string(code)) || raw == label {
			return code, true
		}
	}
	var zero T
	return zero, false
}
