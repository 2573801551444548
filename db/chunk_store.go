package db

import (
	"context"
	"fmt"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/shadowfight-rag/rag"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
)

const TitleField = "title"

// Connect opens the client and pings the primary so a bad URI fails at startup rather
// than on the first query.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, nil
}

// ChunkStore reads the lore collection. It never writes to it.
type ChunkStore struct {
	collection *mongo.Collection
}

func NewChunkStore(collection *mongo.Collection) *ChunkStore {
	return &ChunkStore{collection: collection}
}

func ProvideChunkStore(client *mongo.Client, database, collection string) *ChunkStore {
	return NewChunkStore(client.Database(database).Collection(collection))
}

// VectorSearchPipeline builds the $vectorSearch aggregation. The query vector is sent as
// a packed float32 BSON vector. Results come back ranked by vectorSearchScore, highest first.
func VectorSearchPipeline(vector []float32, params rag.SearchParams) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: params.IndexName},
			{Key: "path", Value: params.Path},
			{Key: "queryVector", Value: bson.NewVector(vector).Binary()},
			{Key: "numCandidates", Value: params.NumCandidates},
			{Key: "limit", Value: params.Limit},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 1},
			{Key: "title", Value: 1},
			{Key: "text", Value: 1},
			{Key: "content", Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}
}

// Search implements rag.Retriever.
func (s *ChunkStore) Search(ctx context.Context, vector []float32, params rag.SearchParams) ([]rag.RetrievedDocument, error) {
	cursor, err := s.collection.Aggregate(ctx, VectorSearchPipeline(vector, params))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer cursor.Close(ctx)

	var chunks []LoreChunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("decode vector search hits: %w", err)
	}

	docs := make([]rag.RetrievedDocument, 0, len(chunks))
	for _, chunk := range chunks {
		doc := chunk.ToDocument()
		if doc.Text == "" {
			logger.Info("Skipping lore chunk without text", zap.String("id", doc.ID))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DistinctTitles lists every document title in the collection.
func (s *ChunkStore) DistinctTitles(ctx context.Context) ([]string, error) {
	var titles []string
	if err := s.collection.Distinct(ctx, TitleField, bson.D{}).Decode(&titles); err != nil {
		return nil, fmt.Errorf("distinct %s: %w", TitleField, err)
	}
	return titles, nil
}
