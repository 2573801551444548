package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/SaiNageswarS/shadowfight-rag/appconfig"
	"google.golang.org/genai"
)

// NewGeminiClient creates the shared Gemini API client used for embedding and generation.
func NewGeminiClient(ctx context.Context, cfg *appconfig.AppConfig) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

// GeminiEmbedder implements rag.Embedder with the Gemini embedContent API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(client *genai.Client, model string) *GeminiEmbedder {
	return &GeminiEmbedder{client: client, model: model}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType: "RETRIEVAL_QUERY",
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, nil
	}
	return resp.Embeddings[0].Values, nil
}

// harmCategories are the categories the generator relaxes. The lore is fictional
// combat, so nothing is blocked.
var harmCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// GenerationSettings are the fixed sampling parameters sent with every prompt.
type GenerationSettings struct {
	Temperature     float32
	TopK            float32
	TopP            float32
	MaxOutputTokens int32
}

func SettingsFromConfig(cfg *appconfig.AppConfig) GenerationSettings {
	return GenerationSettings{
		Temperature:     cfg.Temperature,
		TopK:            cfg.SamplingTopK,
		TopP:            cfg.SamplingTopP,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
}

// GeminiGenerator implements rag.Generator with the Gemini generateContent API.
type GeminiGenerator struct {
	client   *genai.Client
	model    string
	settings GenerationSettings
}

func NewGeminiGenerator(client *genai.Client, model string, settings GenerationSettings) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model, settings: settings}
}

func (g *GeminiGenerator) GenerateConfig() *genai.GenerateContentConfig {
	safety := make([]*genai.SafetySetting, 0, len(harmCategories))
	for _, category := range harmCategories {
		safety = append(safety, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}

	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.settings.Temperature),
		TopK:            genai.Ptr(g.settings.TopK),
		TopP:            genai.Ptr(g.settings.TopP),
		MaxOutputTokens: g.settings.MaxOutputTokens,
		SafetySettings:  safety,
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.GenerateConfig())
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}

	if feedback := resp.PromptFeedback; feedback != nil && feedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked by safety filter: %s", strings.ToLower(string(feedback.BlockReason)))
	}

	return resp.Text(), nil
}
