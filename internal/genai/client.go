package genai

import (
	"context"
	"fmt"
	"strings"

	googleai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sparklit/sparkwall/internal/models"
)

// Client wraps the Gemini API behind the two operations the product needs:
// plain text generation and banner-image generation.
type Client struct {
	client     *googleai.Client
	textModel  string
	imageModel string
}

func NewClient(ctx context.Context, apiKey, textModel, imageModel string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not set")
	}

	client, err := googleai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		client:     client,
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

// GenerateContent returns the model's text response for a prompt.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.textModel)

	resp, err := model.GenerateContent(ctx, googleai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(googleai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text generated for the prompt", models.ErrUpstream)
	}
	return sb.String(), nil
}

// GenerateImage asks the image-capable model for a banner and returns the
// decoded image bytes plus a file extension derived from the MIME type.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	model := c.client.GenerativeModel(c.imageModel)

	resp, err := model.GenerateContent(ctx, googleai.Text(prompt))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(googleai.Blob); ok && len(blob.Data) > 0 {
				return blob.Data, extFromMIME(blob.MIMEType), nil
			}
		}
	}
	return nil, "", fmt.Errorf("%w: no image data generated for the prompt", models.ErrUpstream)
}

func (c *Client) Close() error {
	return c.client.Close()
}

func extFromMIME(mimeType string) string {
	if idx := strings.LastIndex(mimeType, "/"); idx >= 0 && idx < len(mimeType)-1 {
		return mimeType[idx+1:]
	}
	return "png"
}
