package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-api-boot/server"
	"github.com/SaiNageswarS/shadowfight-rag/appconfig"
	"github.com/SaiNageswarS/shadowfight-rag/controller"
	"github.com/SaiNageswarS/shadowfight-rag/db"
	"github.com/SaiNageswarS/shadowfight-rag/mcp"
	"github.com/SaiNageswarS/shadowfight-rag/middleware"
	"github.com/SaiNageswarS/shadowfight-rag/provider"
	"github.com/SaiNageswarS/shadowfight-rag/rag"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const mongoConnectTimeout = 10 * time.Second

func main() {
	dotenv.LoadEnv()

	cfg, err := appconfig.Load()
	if err != nil {
		logger.Fatal("Missing or invalid configuration", zap.Error(err))
	}

	ctx := getCancellableContext()

	mongoClient, err := db.Connect(ctx, cfg.MongoURI, mongoConnectTimeout)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		}
	}()

	genaiClient, err := provider.NewGeminiClient(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to create Gemini client", zap.Error(err))
	}

	boot, err := newServer(cfg).
		ProvideFunc(func() *genai.Client { return genaiClient }).
		ProvideFunc(func() *db.ChunkStore {
			return db.ProvideChunkStore(mongoClient, cfg.MongoDB, cfg.MongoCollection)
		}).
		ProvideFunc(func(store *db.ChunkStore) rag.Retriever { return store }).
		ProvideFunc(func(store *db.ChunkStore) controller.TitleLister { return store }).
		ProvideFunc(provider.ProvideEmbedder).
		ProvideFunc(provider.ProvideGeminiGenerator).
		Build()
	if err != nil {
		logger.Fatal("Dependency Injection Failed", zap.Error(err))
	}

	logger.Info("Starting lore RAG service",
		zap.String("httpAddr", cfg.HTTPAddr()),
		zap.String("embeddingProvider", cfg.EmbeddingProvider),
		zap.String("generationModel", cfg.GenerationModel),
		zap.Bool("strictRetrieval", cfg.StrictRetrieval))

	boot.Serve(ctx)
}

// newServer registers the routes, CORS policy and MCP tool. The caller provides the
// upstream collaborators: rag.Embedder, rag.Generator, rag.Retriever and
// controller.TitleLister.
func newServer(cfg *appconfig.AppConfig) *server.Builder {
	builder := server.New().
		GRPCPort(cfg.GRPCAddr()).
		HTTPPort(cfg.HTTPAddr()).
		CORS(middleware.NewCORS(cfg.AllowedOrigin)).
		ProvideFunc(func() *appconfig.AppConfig { return cfg }).
		ProvideFunc(providePipeline).
		AddRestController(controller.ProvideHealthController).
		AddRestController(controller.ProvideQueryController).
		AddRestController(controller.ProvideMetadataController)

	if cfg.EnableMCP {
		builder = builder.
			WithMCP(mcp.Implementation(), nil).
			WithMCPMiddleware(middleware.RequireAPIKey(cfg.ServiceAPIKey)).
			AddMCPConfigurator(mcp.ProvideLoreTool)
	}

	return builder
}

func providePipeline(embedder rag.Embedder, generator rag.Generator, retriever rag.Retriever, cfg *appconfig.AppConfig) *rag.Pipeline {
	return rag.NewPipeline(embedder, retriever, generator, rag.Options{
		IndexName:       cfg.VectorIndexName,
		VectorPath:      cfg.VectorPath,
		TopK:            cfg.TopK,
		NumCandidates:   cfg.NumCandidates,
		StrictRetrieval: cfg.StrictRetrieval,
	})
}

func getCancellableContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		cancel()
	}()

	return ctx
}
