package store

import (
	"context"
	"fmt"

	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/pulse/internal/models"
	"github.com/xhad/pulse/internal/types"
)

// Embedder turns record text into vectors for similarity search.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type CorpusStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	BatchSize   int
	SearchLimit int
}

// CorpusStore persists scored records with embeddings in Postgres so
// study runs can be compared and queried by semantic similarity.
type CorpusStore struct {
	config   CorpusStoreConfig
	pool     *pgxpool.Pool
	embedder Embedder
}

var _ types.CorpusStore = (*CorpusStore)(nil)

func NewWithConfig(config CorpusStoreConfig, embedder Embedder) (*CorpusStore, error) {
	if config.ConnString == "" {
		return nil, fmt.Errorf("database connection string is required")
	}
	if config.TableName == "" {
		config.TableName = "records"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // Default for nomic-embed-text
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 10
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	cs := &CorpusStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := cs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return cs, nil
}

func (cs *CorpusStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := cs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			source TEXT NOT NULL,
			keyword TEXT,
			published_at TIMESTAMPTZ,
			clean_text TEXT,
			compound DOUBLE PRECISION,
			label TEXT,
			topic_id INTEGER,
			topic_label TEXT,
			embedding vector(%d)
		)`, cs.config.TableName, cs.config.VectorDim)

	_, err = cs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		cs.config.TableName, cs.config.TableName)

	_, err = cs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// NewRunID returns an identifier that groups every record stored by one
// pipeline run.
func NewRunID() string {
	return uuid.NewString()
}

// StoreRecords embeds and upserts the records in batches inside a single
// transaction. Re-running a stage updates rows in place because record ids
// are stable across runs.
func (cs *CorpusStore) StoreRecords(ctx context.Context, runID string, records []models.Record) error {
	tx, err := cs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, run_id, source, keyword, published_at, clean_text,
			compound, label, topic_id, topic_label, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			clean_text = EXCLUDED.clean_text,
			compound = EXCLUDED.compound,
			label = EXCLUDED.label,
			topic_id = EXCLUDED.topic_id,
			topic_label = EXCLUDED.topic_label,
			embedding = EXCLUDED.embedding`,
		cs.config.TableName)

	for start := 0; start < len(records); start += cs.config.BatchSize {
		end := start + cs.config.BatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = sanitizeUTF8(rec.CleanText)
		}

		embeddings, err := cs.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to create embeddings: %v", err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(batch))
		}

		for i, rec := range batch {
			_, err = tx.Exec(ctx, stmt,
				rec.ID,
				runID,
				string(rec.Source),
				rec.Keyword,
				rec.PublishedAt,
				texts[i],
				rec.Compound,
				rec.Label,
				rec.TopicID,
				rec.TopicLabel,
				pgvector.NewVector(embeddings[i]),
			)
			if err != nil {
				return fmt.Errorf("failed to insert record: %v", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// Similar returns the stored records closest to the given embedding by
// cosine distance.
func (cs *CorpusStore) Similar(ctx context.Context, embedding []float32, limit int) ([]models.Record, error) {
	if limit == 0 {
		limit = cs.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT id, source, keyword, published_at, clean_text,
			compound, label, topic_id, topic_label
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		cs.config.TableName)

	rows, err := cs.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %v", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var rec models.Record
		var source string
		err := rows.Scan(
			&rec.ID,
			&source,
			&rec.Keyword,
			&rec.PublishedAt,
			&rec.CleanText,
			&rec.Compound,
			&rec.Label,
			&rec.TopicID,
			&rec.TopicLabel,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		rec.Source = models.Source(source)
		rec.Scored = true
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (cs *CorpusStore) Close() {
	if cs.pool != nil {
		cs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
