package genclient

import (
	"context"
	"fmt"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	"github.com/shouni/go-ai-client/v2/pkg/ai/gemini"
)

// GeminiTextTransport は go-gemini-client を TextTransport へ適合させます。
type GeminiTextTransport struct {
	client gemini.GenerativeModel
}

// NewGeminiTextTransport は Gemini クライアントを包むトランスポートを生成します。
func NewGeminiTextTransport(client gemini.GenerativeModel) *GeminiTextTransport {
	return &GeminiTextTransport{client: client}
}

func (t *GeminiTextTransport) GenerateText(ctx context.Context, prompt, model string) (string, error) {
	resp, err := t.client.GenerateContent(ctx, prompt, model)
	if err != nil {
		return "", fmt.Errorf("Gemini テキスト生成に失敗しました: %w", err)
	}
	return resp.Text, nil
}

// PanelImageAdapter は gemini-image-kit 側の個別パネル生成アダプターの契約です。
type PanelImageAdapter interface {
	GenerateMangaPanel(ctx context.Context, req imagedom.ImageGenerationRequest) (*imagedom.ImageResponse, error)
}

// GeminiImageTransport は gemini-image-kit のアダプターを ImageTransport へ適合させます。
type GeminiImageTransport struct {
	adapter     PanelImageAdapter
	aspectRatio string
}

// NewGeminiImageTransport は画像アダプターを包むトランスポートを生成します。
func NewGeminiImageTransport(adapter PanelImageAdapter, aspectRatio string) *GeminiImageTransport {
	if aspectRatio == "" {
		aspectRatio = "3:4"
	}
	return &GeminiImageTransport{adapter: adapter, aspectRatio: aspectRatio}
}

func (t *GeminiImageTransport) GenerateImage(ctx context.Context, prompt, model string, referenceURLs []string) ([]byte, string, error) {
	req := imagedom.ImageGenerationRequest{
		Prompt:      prompt,
		AspectRatio: t.aspectRatio,
	}
	if len(referenceURLs) > 0 {
		req.ReferenceURL = referenceURLs[0]
	}

	resp, err := t.adapter.GenerateMangaPanel(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("Gemini 画像生成に失敗しました: %w", err)
	}
	return resp.Data, resp.MimeType, nil
}
