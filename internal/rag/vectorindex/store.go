package vectorindex

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/twinlyai/bot-backend/internal/entity"
	"go.etcd.io/bbolt"
)

// FileName is the index file inside a bot directory
const FileName = "index.db"

const formatVersion = 1

var (
	bucketMeta   = []byte("meta")
	bucketChunks = []byte("chunks")

	keyVersion   = []byte("version")
	keyDimension = []byte("dimension")
	keyCount     = []byte("count")
	keyCreatedAt = []byte("created_at")
)

type chunkRecord struct {
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// LoadError reports an index file that exists but cannot be read.
// It matches entity.ErrIndexLoad with errors.Is.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load index %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == entity.ErrIndexLoad
}

// Persist writes ix to dir/index.db, replacing any previous file
func Persist(ix *Index, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove previous index: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		for k, v := range map[string]string{
			string(keyVersion):   strconv.Itoa(formatVersion),
			string(keyDimension): strconv.Itoa(ix.dimension),
			string(keyCount):     strconv.Itoa(len(ix.chunks)),
			string(keyCreatedAt): ix.createdAt.Format(time.RFC3339Nano),
		} {
			if err := meta.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}

		chunks, err := tx.CreateBucket(bucketChunks)
		if err != nil {
			return err
		}
		for i, text := range ix.chunks {
			data, err := json.Marshal(chunkRecord{Text: text, Vector: ix.vectors[i]})
			if err != nil {
				return err
			}
			if err := chunks.Put(seqKey(i), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("write index: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	return nil
}

// Load reads dir/index.db. A missing file is reported as found == false
// with a nil error; an unreadable one as a *LoadError.
//
// bbolt panics on damaged pages instead of returning an error, and a page
// pointing past the mapping faults. Both are turned into a *LoadError.
func Load(dir string) (ix *Index, found bool, err error) {
	path := filepath.Join(dir, FileName)

	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if r := recover(); r != nil {
			ix, found, err = nil, true, &LoadError{Path: path, Err: fmt.Errorf("corrupt index: %v", r)}
		}
	}()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, true, &LoadError{Path: path, Err: err}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, true, &LoadError{Path: path, Err: err}
	}
	defer db.Close()

	ix = &Index{}
	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return errors.New("meta bucket missing")
		}

		version, err := metaInt(meta, keyVersion)
		if err != nil {
			return err
		}
		if version != formatVersion {
			return fmt.Errorf("unsupported index version %d", version)
		}

		if ix.dimension, err = metaInt(meta, keyDimension); err != nil {
			return err
		}
		count, err := metaInt(meta, keyCount)
		if err != nil {
			return err
		}
		if ix.createdAt, err = time.Parse(time.RFC3339Nano, string(meta.Get(keyCreatedAt))); err != nil {
			return fmt.Errorf("parse created_at: %w", err)
		}

		chunks := tx.Bucket(bucketChunks)
		if chunks == nil {
			return errors.New("chunks bucket missing")
		}

		ix.chunks = make([]string, 0, count)
		ix.vectors = make([][]float32, 0, count)
		err = chunks.ForEach(func(k, v []byte) error {
			var rec chunkRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode chunk %x: %w", k, err)
			}
			if len(rec.Vector) != ix.dimension {
				return fmt.Errorf("chunk %x: %w", k, ErrDimensionMismatch)
			}
			ix.chunks = append(ix.chunks, rec.Text)
			ix.vectors = append(ix.vectors, rec.Vector)
			return nil
		})
		if err != nil {
			return err
		}

		if len(ix.chunks) != count {
			return fmt.Errorf("index declares %d chunks, found %d", count, len(ix.chunks))
		}
		return nil
	})
	if err != nil {
		return nil, true, &LoadError{Path: path, Err: err}
	}

	if len(ix.chunks) == 0 {
		return nil, true, &LoadError{Path: path, Err: errors.New("index has no chunks")}
	}

	return ix, true, nil
}

func metaInt(b *bbolt.Bucket, key []byte) (int, error) {
	raw := b.Get(key)
	if raw == nil {
		return 0, fmt.Errorf("meta %s missing", key)
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("meta %s: %w", key, err)
	}
	return n, nil
}

// seqKey encodes a chunk sequence number so that bbolt's byte order matches it
func seqKey(seq int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(seq))
	return key
}
