package embedcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/clipdex/clipdex/internal/config"
	"github.com/clipdex/clipdex/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS embedding_cache (
	model_name   TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	embedding    TEXT NOT NULL,
	ctime        INTEGER NOT NULL,
	PRIMARY KEY (model_name, content_hash)
);
`

type sqliteStore struct {
	db        *sqlx.DB
	modelName string
}

func init() {
	Register("sqlite", createSqliteStore)
}

func createSqliteStore(cfg config.CacheConfig, modelName string) (Store, error) {
	db, err := sqlx.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, err
	}
	return &sqliteStore{db: db, modelName: modelName}, nil
}

func (s *sqliteStore) Get(ctx context.Context, hash string) ([]float32, bool, error) {
	where := map[string]interface{}{
		"model_name":   s.modelName,
		"content_hash": hash,
	}
	sqlStr, args, err := builder.BuildSelect("embedding_cache", where, []string{"embedding"})
	if err != nil {
		return nil, false, err
	}
	var blob []byte
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	var embedding []float32
	if err := json.Unmarshal(blob, &embedding); err != nil {
		return nil, false, err
	}
	return embedding, true, nil
}

func (s *sqliteStore) Put(ctx context.Context, hash string, embedding []float32) error {
	item := model.EmbeddingCacheItem{
		ModelName:   s.modelName,
		ContentHash: hash,
		Embedding:   embedding,
		Ctime:       time.Now().Unix(),
	}
	blob, err := json.Marshal(item.Embedding)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"model_name":   item.ModelName,
		"content_hash": item.ContentHash,
		"embedding":    blob,
		"ctime":        item.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("embedding_cache", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr = strings.Replace(sqlStr, "INSERT INTO", "INSERT OR REPLACE INTO", 1)
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (s *sqliteStore) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM embedding_cache WHERE ctime < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
