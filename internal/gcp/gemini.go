package gcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/geminiocr/internal/models"
	"google.golang.org/genai"
)

// geminiAPIVersion exposes media resolution controls used for OCR quality.
const geminiAPIVersion = "v1alpha"

// GeminiClient extracts text through the Gemini Developer API using an API key.
type GeminiClient struct {
	client  *genai.Client
	modelID string
	config  *genai.GenerateContentConfig
}

// NewGeminiClient creates an API-key client. The key must already be resolved.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required. Set GEMINI_API_KEY or GOOGLE_API_KEY environment variable", models.ErrAuthentication)
	}
	if modelID == "" {
		modelID = OCRModelID
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: geminiAPIVersion},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", models.ErrAuthentication, err)
	}

	return &GeminiClient{
		client:  client,
		modelID: modelID,
		config: &genai.GenerateContentConfig{
			ThinkingConfig: &genai.ThinkingConfig{ThinkingLevel: genai.ThinkingLevelLow},
		},
	}, nil
}

// Extract sends one document inline to the OCR model.
func (c *GeminiClient) Extract(ctx context.Context, doc models.Document) (*models.Extraction, error) {
	data, mimeType, err := loadDocument(doc)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(OCRUserPrompt),
		}, genai.RoleUser),
	}

	slog.Debug("Calling Gemini API.", "model", c.modelID, "name", doc.Name)
	resp, err := c.client.Models.GenerateContent(ctx, c.modelID, contents, c.config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRemoteService, err)
	}
	return finishExtraction(doc, geminiText(resp), geminiUsage(resp))
}

// Model returns the model identifier used for extraction.
func (c *GeminiClient) Model() string { return c.modelID }

func (c *GeminiClient) Close() error { return nil }

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

func geminiUsage(resp *genai.GenerateContentResponse) models.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return models.Usage{}
	}
	return models.Usage{
		InputTokens:  toUint(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: toUint(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:  toUint(resp.UsageMetadata.TotalTokenCount),
	}
}
