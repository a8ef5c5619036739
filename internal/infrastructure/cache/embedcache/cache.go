// Package embedcache memoizes query embeddings in BadgerDB.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kirillkom/graphrag-search/internal/core/ports"
)

type Options struct {
	// Dir is the badger directory; empty keeps the cache in memory.
	Dir string
	TTL time.Duration
	// Namespace separates vectors of different embedding models.
	Namespace string
}

// Embedder wraps another embedder and caches vectors per text.
type Embedder struct {
	next ports.Embedder
	db   *badger.DB
	opts Options
}

func Open(next ports.Embedder, opts Options) (*Embedder, error) {
	if next == nil {
		return nil, errors.New("embedcache: next embedder is required")
	}
	badgerOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.Dir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	return &Embedder{next: next, db: db, opts: opts}, nil
}

func (e *Embedder) Close() error {
	return e.db.Close()
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Embed returns cached vectors and embeds the misses in a single call to the
// wrapped embedder. Cache failures fall through to the wrapped embedder.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))

	err := e.db.View(func(txn *badger.Txn) error {
		for i, text := range texts {
			item, err := txn.Get(e.key(text))
			if errors.Is(err, badger.ErrKeyNotFound) {
				missIdx = append(missIdx, i)
				continue
			}
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[i] = decodeVector(raw)
		}
		return nil
	})
	if err != nil {
		slog.Warn("embedding_cache_read_failed", "error", err)
		return e.next.Embed(ctx, texts)
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}
	fresh, err := e.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedding cache: got %d vectors for %d texts", len(fresh), len(missTexts))
	}

	err = e.db.Update(func(txn *badger.Txn) error {
		for j, i := range missIdx {
			out[i] = fresh[j]
			entry := badger.NewEntry(e.key(texts[i]), encodeVector(fresh[j]))
			if e.opts.TTL > 0 {
				entry = entry.WithTTL(e.opts.TTL)
			}
			if err := txn.SetEntry(entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Warn("embedding_cache_write_failed", "error", err)
		for j, i := range missIdx {
			out[i] = fresh[j]
		}
	}
	return out, nil
}

func (e *Embedder) key(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return []byte("emb:" + e.opts.Namespace + ":" + hex.EncodeToString(sum[:]))
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}
