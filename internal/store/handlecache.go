package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"uk.co.dudmesh.crosspost/internal/model"
)

type handleCache struct {
	db *sqlx.DB
}

// NewHandleCache opens a process-local cache of handle -> DID lookups.
// Caches with the same name share their contents.
func NewHandleCache(name string) (*handleCache, error) {
	db, err := sqlx.Connect("sqlite3", "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	cache := &handleCache{db}
	if err := cache.init(); err != nil {
		db.Close()
		return nil, err
	}

	return cache, nil
}

func (s *handleCache) init() error {
	_, err := s.db.Exec(`create table if not exists handle_cache (
		handle text primary key,
		did text not null
	)`)
	if err != nil {
		return fmt.Errorf("creating handle cache table: %w", err)
	}
	return nil
}

func (s *handleCache) Close() error {
	return s.db.Close()
}

func (s *handleCache) Get(handle string) (string, error) {
	var did string
	err := s.db.Get(&did, "SELECT did FROM handle_cache WHERE handle = ?", handle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrorNotFound
		}
		return "", fmt.Errorf("getting did from cache: %w", err)
	}
	return did, nil
}

func (s *handleCache) Set(handle string, did string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO handle_cache (handle, did) VALUES (?, ?)", handle, did)
	if err != nil {
		return fmt.Errorf("setting did in cache: %w", err)
	}
	return nil
}
