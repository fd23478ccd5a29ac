package pipeline

import (
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"luxespace/internal/design"
)

const systemInstruction = `
Bạn là một Kiến trúc sư và Chuyên gia thiết kế nội thất AI hàng đầu.
Nhiệm vụ của bạn là phân tích hình ảnh không gian hiện trạng của khách hàng và đưa ra 3 phương án thiết kế nội thất khác nhau dựa trên nhu cầu của họ.

Bạn cần trả về kết quả dưới dạng JSON theo đúng schema được yêu cầu. Không trả về markdown, chỉ trả về JSON thuần túy.

3 Phương án cần đề xuất, theo đúng thứ tự:
1. Phương án Tối ưu công năng (FUNCTIONAL)
2. Phương án Thẩm mỹ & Cảm xúc (AESTHETIC)
3. Phương án Cao cấp & Lâu dài (PREMIUM)

Mỗi phương án gồm: tiêu đề (title), mô tả (description), chi phí ước tính (estimatedCost) và 3 điểm nổi bật (keyFeatures).
Phần nhận xét hiện trạng (currentSpaceAnalysis) chỉ gồm 1-2 câu.
`

func analysisPrompt(f design.FormData) string {
	return fmt.Sprintf(`
Phân tích hình ảnh không gian này.
Thông tin khách hàng:
- Loại phòng: %s
- Phong cách mong muốn: %s
- Ngân sách: %s
- Ghi chú thêm: %s

Hãy đưa ra nhận xét về hiện trạng và 3 phương án thiết kế chi tiết.
`, f.RoomType.Label(), f.Style.Label(), f.Budget.Label(), f.Note)
}

func renderPrompt(o design.DesignOption) string {
	return fmt.Sprintf(`
Interior design render, photorealistic, 4k.
Redesign this room based on:
%s
%s
Features: %s
Keep the room's structural elements exactly where they are: walls, windows and doors.
Change only furniture, materials, colors, decor and lighting to match the concept.
`, o.Title, o.Description, strings.Join(o.KeyFeatures, ", "))
}

// analysisSchema is the response-schema directive for stage 1.
func analysisSchema() *genai.Schema {
	categories := make([]string, 0, len(design.Categories))
	for _, c := range design.Categories {
		categories = append(categories, string(c))
	}
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"currentSpaceAnalysis": str(),
			"options": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"type":          {Type: genai.TypeString, Enum: categories},
						"title":         str(),
						"description":   str(),
						"estimatedCost": str(),
						"keyFeatures":   {Type: genai.TypeArray, Items: str()},
					},
					Required:         []string{"type", "title", "description", "estimatedCost", "keyFeatures"},
					PropertyOrdering: []string{"type", "title", "description", "estimatedCost", "keyFeatures"},
				},
			},
		},
		Required:         []string{"currentSpaceAnalysis", "options"},
		PropertyOrdering: []string{"currentSpaceAnalysis", "options"},
	}
}
