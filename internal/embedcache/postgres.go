package embedcache

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/clipdex/clipdex/internal/config"
	"github.com/clipdex/clipdex/internal/model"
)

// pgStore keeps cache entries in a pgvector column so the same table can be
// queried with vector operators by external tooling. Requires the vector
// extension and this table:
//
//	CREATE TABLE IF NOT EXISTS embedding_cache (
//		model_name   TEXT NOT NULL,
//		content_hash TEXT NOT NULL,
//		embedding    vector NOT NULL,
//		ctime        BIGINT NOT NULL,
//		PRIMARY KEY (model_name, content_hash)
//	);
type pgStore struct {
	db        *sqlx.DB
	modelName string
}

func init() {
	Register("postgres", createPGStore)
}

func createPGStore(cfg config.CacheConfig, modelName string) (Store, error) {
	db, err := sqlx.Open("postgres", cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &pgStore{db: db, modelName: modelName}, nil
}

func (s *pgStore) Get(ctx context.Context, hash string) ([]float32, bool, error) {
	const query = `
		SELECT embedding
		FROM embedding_cache
		WHERE model_name = $1 AND content_hash = $2
	`
	var embedding pgvector.Vector
	if err := s.db.QueryRowContext(ctx, query, s.modelName, hash).Scan(&embedding); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return embedding.Slice(), true, nil
}

func (s *pgStore) Put(ctx context.Context, hash string, embedding []float32) error {
	const query = `
		INSERT INTO embedding_cache (model_name, content_hash, embedding, ctime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (model_name, content_hash) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`
	item := model.EmbeddingCacheItem{
		ModelName:   s.modelName,
		ContentHash: hash,
		Embedding:   embedding,
		Ctime:       time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx, query,
		item.ModelName,
		item.ContentHash,
		pgvector.NewVector(item.Embedding),
		item.Ctime,
	)
	return err
}

func (s *pgStore) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM embedding_cache WHERE ctime < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
