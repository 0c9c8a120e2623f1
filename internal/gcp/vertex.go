package gcp

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/geminiocr/internal/models"
	"google.golang.org/api/option"
)

// VertexClient extracts text through Vertex AI.
type VertexClient struct {
	OCRModel   *genai.GenerativeModel
	modelID    string
	baseClient *genai.Client
}

// NewVertexClient creates a client bound to a project and location.
// credentialsFile is optional; application default credentials are used when empty.
func NewVertexClient(ctx context.Context, projectID, location, modelID, credentialsFile string) (*VertexClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: GOOGLE_CLOUD_PROJECT environment variable or --project is required for Vertex AI", models.ErrAuthentication)
	}
	if location == "" {
		return nil, fmt.Errorf("%w: GOOGLE_CLOUD_LOCATION environment variable or --location is required for Vertex AI", models.ErrAuthentication)
	}
	if modelID == "" {
		modelID = OCRModelID
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	baseClient, err := genai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Vertex AI client: %v", models.ErrAuthentication, err)
	}

	ocrModel := baseClient.GenerativeModel(modelID)
	ocrModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		OCRModel:   ocrModel,
		modelID:    modelID,
		baseClient: baseClient,
	}, nil
}

// Extract sends one document inline to the OCR model.
func (c *VertexClient) Extract(ctx context.Context, doc models.Document) (*models.Extraction, error) {
	data, mimeType, err := loadDocument(doc)
	if err != nil {
		return nil, err
	}

	slog.Debug("Calling Vertex AI.", "model", c.modelID, "name", doc.Name)
	resp, err := c.OCRModel.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: data},
		genai.Text(OCRUserPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRemoteService, err)
	}
	return finishExtraction(doc, vertexText(resp), vertexUsage(resp))
}

// Model returns the model identifier used for extraction.
func (c *VertexClient) Model() string { return c.modelID }

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// vertexText concatenates the text parts of the first candidate.
func vertexText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text += string(txt)
		}
	}
	return text
}

func vertexUsage(resp *genai.GenerateContentResponse) models.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return models.Usage{}
	}
	return models.Usage{
		InputTokens:  toUint(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: toUint(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:  toUint(resp.UsageMetadata.TotalTokenCount),
	}
}
