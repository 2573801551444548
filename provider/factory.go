package provider

import (
	"github.com/SaiNageswarS/go-api-boot/embed"
	"github.com/SaiNageswarS/shadowfight-rag/appconfig"
	"github.com/SaiNageswarS/shadowfight-rag/rag"
	"google.golang.org/genai"
)

// ProvideEmbedder picks the query embedder named by EMBEDDING_PROVIDER. The Jina client
// reads JINA_AI_API_KEY itself and exits if it is missing.
func ProvideEmbedder(client *genai.Client, cfg *appconfig.AppConfig) rag.Embedder {
	if cfg.EmbeddingProvider == appconfig.EmbeddingProviderJina {
		return NewJinaEmbedder(embed.ProvideJinaAIEmbeddingClient())
	}
	return NewGeminiEmbedder(client, cfg.EmbeddingModel)
}

func ProvideGeminiGenerator(client *genai.Client, cfg *appconfig.AppConfig) rag.Generator {
	return NewGeminiGenerator(client, cfg.GenerationModel, SettingsFromConfig(cfg))
}
