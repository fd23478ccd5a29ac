package llmclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync/atomic"
)

// FakeClient returns deterministic payloads for offline runs and tests.
// JSONFunc and ImageFunc override the canned responses when set.
type FakeClient struct {
	JSONFunc  func(ctx context.Context, req JSONRequest) (json.RawMessage, error)
	ImageFunc func(ctx context.Context, req ImageRequest) (*Blob, error)

	jsonCalls  atomic.Int32
	imageCalls atomic.Int32
}

func (f *FakeClient) Name() string { return "FakeLLM" }

func (f *FakeClient) JSONCalls() int  { return int(f.jsonCalls.Load()) }
func (f *FakeClient) ImageCalls() int { return int(f.imageCalls.Load()) }

func (f *FakeClient) GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error) {
	f.jsonCalls.Add(1)
	if f.JSONFunc != nil {
		return f.JSONFunc(ctx, req)
	}
	return json.RawMessage(FakeAnalysisJSON), nil
}

func (f *FakeClient) GenerateImage(ctx context.Context, req ImageRequest) (*Blob, error) {
	f.imageCalls.Add(1)
	if f.ImageFunc != nil {
		return f.ImageFunc(ctx, req)
	}
	return &Blob{MIMEType: "image/png", Data: fakePNG}, nil
}

// FakeAnalysisJSON is a valid stage-1 response.
const FakeAnalysisJSON = `{
  "currentSpaceAnalysis": "Phòng khách rộng nhưng ánh sáng yếu và đồ nội thất rời rạc.",
  "options": [
    {"type": "FUNCTIONAL", "title": "Không gian mở tiện dụng", "description": "Tối ưu lối đi và lưu trữ.", "estimatedCost": "80 - 100 triệu", "keyFeatures": ["Tủ âm tường", "Sofa module", "Đèn rail"]},
    {"type": "AESTHETIC", "title": "Ấm áp gỗ sồi", "description": "Tông gỗ sáng và vải lanh.", "estimatedCost": "150 - 200 triệu", "keyFeatures": ["Sàn gỗ sồi", "Rèm lanh", "Đèn hắt trần"]},
    {"type": "PREMIUM", "title": "Đá cẩm thạch sang trọng", "description": "Vật liệu cao cấp bền vững.", "estimatedCost": "350 - 450 triệu", "keyFeatures": ["Ốp đá marble", "Đèn chùm pha lê", "Nhà thông minh"]}
  ]
}`

// 1x1 transparent PNG.
var fakePNG, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")
