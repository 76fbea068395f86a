package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/notify"
	"github.com/GriffinCanCode/imageviewer/internal/providers/storage"
)

// DefaultKey is the key the collection is stored under
const DefaultKey = "sessions"

const (
	opLoad = "loading saved sessions"
	opSave = "saving sessions"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// LoadError reports one session that could not be restored
type LoadError struct {
	Index int
	Name  string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("session %d (%q): %v", e.Index, e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// StoreOptions configures a Store
type StoreOptions struct {
	Key      string
	Notifier notify.Notifier
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
}

// Store persists the whole session collection under one key
type Store struct {
	kv       storage.KV
	codec    *image.Codec
	key      string
	notifier notify.Notifier
	log      *logging.Logger
	metrics  *monitoring.Metrics
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// NewStore creates a store over kv. The codec resolves the handles being
// saved and materializes the ones being loaded.
func NewStore(kv storage.KV, codec *image.Codec, opts StoreOptions) (*Store, error) {
	if kv == nil {
		return nil, errors.New("session store: nil key-value store")
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("session store: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("session store: zstd decoder: %w", err)
	}

	return &Store{
		kv:       kv,
		codec:    codec,
		key:      opts.Key,
		notifier: opts.Notifier,
		log:      opts.Logger.Named("store"),
		metrics:  opts.Metrics,
		enc:      enc,
		dec:      dec,
	}, nil
}

// Key returns the storage key
func (s *Store) Key() string { return s.key }

// LoadAll restores every stored session. A missing key yields an empty
// collection. Sessions that fail to expand are left out and reported as
// joined *LoadError values next to the sessions that did load.
func (s *Store) LoadAll(ctx context.Context) ([]Session, error) {
	var sessions []Session
	err := notify.Track(s.notifier, opLoad, func() error {
		var err error
		sessions, err = s.load(ctx)
		return err
	})
	return sessions, err
}

func (s *Store) load(ctx context.Context) ([]Session, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}

	data, err := s.decompress(raw)
	if err != nil {
		return nil, err
	}

	var records []record
	if err := sonic.ConfigStd.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}

	loaded := make([]Session, len(records))
	errs := make([]error, len(records))

	var g errgroup.Group
	for i, rec := range records {
		g.Go(func() error {
			sess, err := fromRecord(ctx, s.codec, rec)
			if err != nil {
				errs[i] = &LoadError{Index: i, Name: rec.Name, Err: err}
				return nil
			}
			loaded[i] = sess
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Session, 0, len(records))
	for i := range loaded {
		if errs[i] != nil {
			s.log.Warn("dropping unreadable session",
				zap.Int("index", i),
				zap.Error(errs[i]))
			continue
		}
		out = append(out, loaded[i])
	}

	s.log.Debug("sessions loaded", zap.Int("count", len(out)), zap.Int("bytes", len(raw)))
	return out, errors.Join(errs...)
}

// SaveAll replaces the stored collection with sessions
func (s *Store) SaveAll(ctx context.Context, sessions []Session) error {
	return notify.Track(s.notifier, opSave, func() error {
		return s.save(ctx, sessions)
	})
}

func (s *Store) save(ctx context.Context, sessions []Session) error {
	records := make([]record, len(sessions))

	g, gctx := errgroup.WithContext(ctx)
	for i, sess := range sessions {
		g.Go(func() error {
			rec, err := toRecord(gctx, sess, s.codec.ToBinary)
			if err != nil {
				return fmt.Errorf("session %d (%q): %w", i, sess.Name, err)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	data, err := sonic.ConfigStd.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	compressed := s.enc.EncodeAll(data, make([]byte, 0, len(data)/2))

	if err := s.kv.Set(ctx, s.key, compressed); err != nil {
		return fmt.Errorf("write %s: %w", s.key, err)
	}

	if s.metrics != nil {
		s.metrics.SetStoredBytes(len(compressed))
	}
	s.log.Debug("sessions saved",
		zap.Int("count", len(sessions)),
		zap.Int("raw_bytes", len(data)),
		zap.Int("bytes", len(compressed)))
	return nil
}

// decompress unpacks zstd frames. Values without the zstd magic are taken
// as uncompressed JSON, so a document seeded by hand still loads.
func (s *Store) decompress(raw []byte) ([]byte, error) {
	if !bytes.HasPrefix(raw, zstdMagic) {
		return raw, nil
	}
	data, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", s.key, err)
	}
	return data, nil
}

// Close releases the compression state. The key-value store stays open.
func (s *Store) Close() error {
	s.dec.Close()
	return s.enc.Close()
}
