package lead

import (
	"strings"
	"time"

	"luxespace/internal/design"
)

const (
	DefaultTimezone = "Asia/Ho_Chi_Minh"

	// vi-VN locale rendering: time first, then day/month/year without padding.
	timestampLayout = "15:04:05 2/1/2006"

	noImageName = "Không có ảnh"
	noResult    = "Chưa có kết quả (Lỗi hoặc người dùng thoát sớm)"
)

// Record is the flat row appended to the lead sheet.
type Record struct {
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Gender    string `json:"gender"`
	RoomType  string `json:"roomType"`
	Style     string `json:"style"`
	Budget    string `json:"budget"`
	Note      string `json:"note"`
	ImageName string `json:"imageName"`
	AISummary string `json:"aiSummary"`
}

// NewRecord flattens a lead. result may be nil when the analysis failed.
func NewRecord(form design.FormData, result *design.AnalysisResult, now time.Time, loc *time.Location) Record {
	if loc == nil {
		loc = time.Local
	}
	imageName := noImageName
	if form.Image != nil && strings.TrimSpace(form.Image.Name) != "" {
		imageName = form.Image.Name
	}
	return Record{
		Timestamp: now.In(loc).Format(timestampLayout),
		Name:      form.Contact.Name,
		Phone:     form.Contact.Phone,
		Email:     form.Contact.Email,
		Gender:    form.Gender.Label(),
		RoomType:  form.RoomType.Label(),
		Style:     form.Style.Label(),
		Budget:    form.Budget.Label(),
		Note:      form.Note,
		ImageName: imageName,
		AISummary: Summary(result),
	}
}

// Summary joins the critique with the option titles for the sales team.
func Summary(result *design.AnalysisResult) string {
	if result == nil {
		return noResult
	}
	return "Hiện trạng: " + result.CurrentSpaceAnalysis + ". \nĐề xuất: " + strings.Join(result.Titles(), ", ")
}
