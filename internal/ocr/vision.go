package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/prepforge/prepforge/internal/resilience"
	"github.com/prepforge/prepforge/pkg/claude"
)

const extractPrompt = "Extract all text from this image. Preserve formatting."

// Extractor pulls problem text out of an uploaded screenshot.
type Extractor interface {
	ExtractText(ctx context.Context, imageBase64, imageType string) (string, float64, error)
}

// VisionExtractor extracts text with the generator model's vision capability.
type VisionExtractor struct {
	client claude.Client
	model  string
	retry  resilience.RetryConfig
}

// NewVisionExtractor creates an Extractor backed by the given model client.
func NewVisionExtractor(client claude.Client, model string, retry resilience.RetryConfig) *VisionExtractor {
	return &VisionExtractor{client: client, model: model, retry: retry}
}

// ExtractText extracts text from a base64 image and scores its confidence.
func (v *VisionExtractor) ExtractText(ctx context.Context, imageBase64, imageType string) (string, float64, error) {
	req := claude.MessageRequest{
		Model:     v.model,
		MaxTokens: 2000,
		Messages: []claude.Message{
			{
				Role:    "user",
				Content: extractPrompt,
				Images: []claude.ImageBlock{
					{MediaType: MediaType(imageType), Data: imageBase64},
				},
			},
		},
	}

	resp, err := resilience.DoVal(ctx, v.retry, func(ctx context.Context) (*claude.MessageResponse, error) {
		resp, err := v.client.CreateMessage(ctx, req)
		if err != nil {
			return nil, claude.ClassifyErr(err)
		}
		return resp, nil
	})
	if err != nil {
		return "", 0, eris.Wrap(err, "ocr: extract text from image")
	}

	text := resp.Text()
	return text, EstimateConfidence(text), nil
}

// MediaType maps a file extension style image type to its MIME type.
func MediaType(imageType string) string {
	if imageType == "jpg" {
		return "image/jpeg"
	}
	return "image/" + imageType
}
