// Package chunkdb stores host world chunks in SQLite so a reference world survives
// restarts. Block data is RLE encoded and zstd compressed per chunk.
package chunkdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"chunkfinder.ai/internal/encoding"
	"chunkfinder.ai/internal/world/terrain/store"
)

type DB struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder

	timeout time.Duration
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(64<<20))
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db, enc: enc, dec: dec, timeout: 5 * time.Second}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS chunks (
	cx INTEGER NOT NULL,
	cz INTEGER NOT NULL,
	size INTEGER NOT NULL,
	min_y INTEGER NOT NULL,
	height INTEGER NOT NULL,
	blocks BLOB NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (cx, cz)
);`)
	return err
}

func (d *DB) Close() error {
	d.dec.Close()
	err1 := d.enc.Close()
	err2 := d.db.Close()
	return errors.Join(err1, err2)
}

// SaveChunk implements store.Backing.
func (d *DB) SaveChunk(ch *store.Chunk) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	blob := d.enc.EncodeAll(encoding.EncodeRLE(ch.Blocks), nil)
	_, err := d.db.ExecContext(ctx, `
INSERT INTO chunks (cx, cz, size, min_y, height, blocks, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(cx, cz) DO UPDATE SET
	size = excluded.size,
	min_y = excluded.min_y,
	height = excluded.height,
	blocks = excluded.blocks,
	updated_at = excluded.updated_at`,
		ch.CX, ch.CZ, ch.Size, ch.MinY, ch.Height, blob, time.Now().UTC().Format(time.RFC3339))
	return err
}

// ErrShapeMismatch means a stored chunk was written for a different world layout.
var ErrShapeMismatch = errors.New("chunkdb: stored chunk shape mismatch")

// LoadChunk implements store.Backing. The row's shape is checked against want before
// any block data is decoded.
func (d *DB) LoadChunk(cx, cz int, want store.Shape) (*store.Chunk, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var size, minY, height int
	var blob []byte
	err := d.db.QueryRowContext(ctx,
		`SELECT size, min_y, height, blocks FROM chunks WHERE cx = ? AND cz = ?`, cx, cz,
	).Scan(&size, &minY, &height, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if got := (store.Shape{Size: size, MinY: minY, Height: height}); got != want {
		return nil, false, fmt.Errorf("chunk %d,%d: %w: %+v want %+v", cx, cz, ErrShapeMismatch, got, want)
	}

	raw, err := d.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, false, fmt.Errorf("chunk %d,%d: zstd: %w", cx, cz, err)
	}
	blocks, err := encoding.DecodeRLE(raw, want.Voxels())
	if err != nil {
		return nil, false, fmt.Errorf("chunk %d,%d: rle: %w", cx, cz, err)
	}
	ch := store.NewChunk(cx, cz, size, minY, height)
	ch.Blocks = blocks
	return ch, true, nil
}

func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}
