package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
	"github.com/GriffinCanCode/imageviewer/internal/domain/viewer"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/notify"
	"github.com/GriffinCanCode/imageviewer/internal/providers/flatten"
	"github.com/GriffinCanCode/imageviewer/internal/providers/remote"
	"github.com/GriffinCanCode/imageviewer/internal/providers/storage"
)

const (
	opCreate  = "creating session"
	opRemove  = "removing session"
	opUpdate  = "updating session"
	opExport  = "exporting sessions"
	opImport  = "importing sessions"
	opUpload  = "uploading image"
	opFlatten = "flattening images"
	opCompile = "compiling images"
	opConnect = "connecting to sync service"
)

// Credentials select remote mode
type Credentials struct {
	URL      string
	Password string
}

// Options configures an API
type Options struct {
	// Remote switches to the sync service when URL is set
	Remote *Credentials
	// Timeout bounds each sync request
	Timeout time.Duration
	// UploadRate throttles image uploads per second, 0 for unlimited
	UploadRate float64

	// KV and StoreKey are used in local mode
	KV       storage.KV
	StoreKey string

	Runner   flatten.Runner
	Notifier notify.Notifier
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	Clock    func() time.Time
}

// ExportFile is a named download
type ExportFile struct {
	Name string
	Data []byte
}

// exportDoc is the portable collection format
type exportDoc struct {
	Sessions []record `json:"sessions"`
}

// API owns the session collection and keeps it persisted. Operations may
// run concurrently; in remote mode each one is an independent request and
// concurrent edits of the same session race on the server.
type API struct {
	mu       sync.Mutex
	sessions []Session

	// saveMu orders local writes so the last save holds the newest snapshot
	saveMu sync.Mutex

	registry *image.Registry
	codec    *image.Codec
	store    *Store
	client   *remote.Client
	runner   flatten.Runner
	notifier notify.Notifier
	log      *logging.Logger
	metrics  *monitoring.Metrics
	now      func() time.Time
}

// Open connects to the sync service when credentials are given and loads
// the local collection otherwise. Sessions that fail to load locally are
// logged and skipped.
func Open(ctx context.Context, opts Options) (*API, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	a := &API{
		runner:  opts.Runner,
		log:     opts.Logger.Named("session"),
		metrics: opts.Metrics,
		now:     opts.Clock,
	}
	if opts.Metrics != nil {
		a.notifier = notify.Combine(opts.Notifier, opts.Metrics)
	} else {
		a.notifier = notify.Combine(opts.Notifier)
	}

	if opts.Remote != nil && opts.Remote.URL != "" {
		if err := a.connect(ctx, opts); err != nil {
			return nil, err
		}
	} else if err := a.openLocal(ctx, opts); err != nil {
		return nil, err
	}

	a.recordCount(len(a.sessions))
	return a, nil
}

func (a *API) connect(ctx context.Context, opts Options) error {
	return notify.Track(a.notifier, opConnect, func() error {
		remoteOpts := remote.Options{
			URL:        opts.Remote.URL,
			Timeout:    opts.Timeout,
			UploadRate: opts.UploadRate,
			Logger:     opts.Logger,
		}
		if opts.Metrics != nil {
			remoteOpts.Recorder = opts.Metrics
		}

		client, err := remote.Login(ctx, remoteOpts, opts.Remote.Password)
		if err != nil {
			return err
		}
		a.client = client
		a.registry = image.NewRegistry(image.WithRemote(client))
		a.codec = image.NewCodec(a.registry)

		raw, err := client.ListSessions(ctx)
		if err != nil {
			return err
		}
		sessions := make([]Session, 0, len(raw))
		for i, msg := range raw {
			var rec remoteRecord
			if err := sonic.ConfigStd.Unmarshal(msg, &rec); err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			sessions = append(sessions, fromRemote(rec))
		}
		a.sessions = sessions
		return nil
	})
}

func (a *API) openLocal(ctx context.Context, opts Options) error {
	a.registry = image.NewRegistry()
	a.codec = image.NewCodec(a.registry)

	store, err := NewStore(opts.KV, a.codec, StoreOptions{
		Key:      opts.StoreKey,
		Notifier: a.notifier,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
	})
	if err != nil {
		return err
	}

	sessions, err := store.LoadAll(ctx)
	var loadErr *LoadError
	if err != nil && !errors.As(err, &loadErr) {
		_ = store.Close()
		return err
	}
	if err != nil {
		a.log.Warn("some saved sessions could not be restored", zap.Error(err))
	}

	a.store = store
	a.sessions = sessions
	return nil
}

// Remote reports whether sessions are kept on the sync service
func (a *API) Remote() bool { return a.client != nil }

// Registry returns the handle registry images must be materialized in
func (a *API) Registry() *image.Registry { return a.registry }

// Len returns the number of sessions
func (a *API) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

// Sessions returns a deep copy of the collection
func (a *API) Sessions() []Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneAll(a.sessions)
}

// Session returns a copy of the session at i
func (a *API) Session(i int) (Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkIndex(i); err != nil {
		return Session{}, err
	}
	return a.sessions[i].Clone(), nil
}

// NewSession creates an unsaved session with the default name
func (a *API) NewSession(images []image.Full) Session {
	return New(images, a.now())
}

// Append adds s to the end of the collection and returns its index
func (a *API) Append(ctx context.Context, s Session) (int, error) {
	idx := -1
	err := notify.Track(a.notifier, opCreate, func() error {
		var err error
		idx, err = a.append(ctx, s)
		return err
	})
	return idx, err
}

func (a *API) append(ctx context.Context, s Session) (int, error) {
	s = s.Clone()

	if a.Remote() {
		uploaded, err := a.uploadHandles(ctx, s, make(map[image.Handle]image.Handle))
		if err != nil {
			return -1, err
		}
		uploaded.ID = ""
		id, err := a.client.CreateSession(ctx, toRemote(uploaded))
		if err != nil {
			return -1, err
		}
		uploaded.ID = id

		a.mu.Lock()
		a.sessions = append(a.sessions, uploaded)
		idx, n := len(a.sessions)-1, len(a.sessions)
		a.mu.Unlock()

		a.recordCount(n)
		return idx, nil
	}

	a.mu.Lock()
	a.sessions = append(a.sessions, s)
	idx := len(a.sessions) - 1
	a.mu.Unlock()

	return idx, a.persist(ctx)
}

// Remove deletes the session at i. Remote sessions must carry an id.
func (a *API) Remove(ctx context.Context, i int) error {
	return notify.Track(a.notifier, opRemove, func() error {
		return a.remove(ctx, i)
	})
}

func (a *API) remove(ctx context.Context, i int) error {
	a.mu.Lock()
	if err := a.checkIndex(i); err != nil {
		a.mu.Unlock()
		return err
	}
	target := a.sessions[i]

	if !a.Remote() {
		a.sessions = deleteAt(a.sessions, i)
		a.mu.Unlock()
		return a.persist(ctx)
	}
	a.mu.Unlock()

	if !target.HasID() {
		return fmt.Errorf("remove session %d (%q): %w", i, target.Name, ErrMissingID)
	}
	if err := a.client.DeleteSession(ctx, target.ID); err != nil {
		return err
	}

	a.mu.Lock()
	if j := a.indexOf(target.ID, i); j >= 0 {
		a.sessions = deleteAt(a.sessions, j)
	}
	n := len(a.sessions)
	a.mu.Unlock()

	a.recordCount(n)
	return nil
}

// Edit replaces the session at i with s. The replaced session's id is kept.
// In remote mode the entry is only replaced once the service accepted it.
func (a *API) Edit(ctx context.Context, i int, s Session) error {
	return notify.Track(a.notifier, opUpdate, func() error {
		return a.edit(ctx, i, s)
	})
}

func (a *API) edit(ctx context.Context, i int, s Session) error {
	s = s.Clone()

	a.mu.Lock()
	if err := a.checkIndex(i); err != nil {
		a.mu.Unlock()
		return err
	}
	s.ID = a.sessions[i].ID

	if !a.Remote() {
		a.sessions[i] = s
		a.mu.Unlock()
		return a.persist(ctx)
	}
	a.mu.Unlock()

	if !s.HasID() {
		return fmt.Errorf("edit session %d (%q): %w", i, s.Name, ErrMissingID)
	}

	uploaded, err := a.uploadHandles(ctx, s, make(map[image.Handle]image.Handle))
	if err != nil {
		return err
	}
	if err := a.client.UpdateSession(ctx, uploaded.ID, toRemote(uploaded)); err != nil {
		return err
	}

	a.mu.Lock()
	if j := a.indexOf(uploaded.ID, i); j >= 0 {
		a.sessions[j] = uploaded
	}
	a.mu.Unlock()
	return nil
}

// Export serializes every session with inline data URL payloads
func (a *API) Export(ctx context.Context) (ExportFile, error) {
	var file ExportFile
	err := notify.Track(a.notifier, opExport, func() error {
		sessions := a.Sessions()
		doc := exportDoc{Sessions: make([]record, len(sessions))}
		for i, s := range sessions {
			rec, err := toRecord(ctx, s, a.codec.ToText)
			if err != nil {
				return fmt.Errorf("session %d (%q): %w", i, s.Name, err)
			}
			doc.Sessions[i] = rec
		}

		data, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encode export: %w", err)
		}
		file = ExportFile{
			Name: fmt.Sprintf("sessions-%d.json", a.now().UnixMilli()),
			Data: data,
		}
		return nil
	})
	return file, err
}

// Import replaces the whole collection with an exported document. Nothing
// is changed if the document cannot be read. In remote mode the service is
// emptied first and sessions created so far are kept if a later one fails.
func (a *API) Import(ctx context.Context, data []byte) error {
	return notify.Track(a.notifier, opImport, func() error {
		return a.importDoc(ctx, data)
	})
}

func (a *API) importDoc(ctx context.Context, data []byte) error {
	var doc exportDoc
	if err := sonic.ConfigStd.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode import: %w", err)
	}

	imported := make([]Session, len(doc.Sessions))
	for i, rec := range doc.Sessions {
		s, err := fromRecord(ctx, a.codec, rec)
		if err != nil {
			return &LoadError{Index: i, Name: rec.Name, Err: err}
		}
		s.ID = ""
		imported[i] = s
	}

	if !a.Remote() {
		a.mu.Lock()
		a.sessions = imported
		a.mu.Unlock()
		return a.persist(ctx)
	}

	if err := a.client.DeleteAll(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.sessions = []Session{}
	a.mu.Unlock()
	a.recordCount(0)

	for _, s := range imported {
		if _, err := a.append(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// UploadImage makes b available to sessions. Locally that is a runtime
// handle; remotely it is the served URL of the uploaded copy.
func (a *API) UploadImage(ctx context.Context, b image.Blob) (image.Handle, error) {
	var h image.Handle
	err := notify.Track(a.notifier, opUpload, func() error {
		var err error
		h, err = a.upload(ctx, b)
		return err
	})
	return h, err
}

func (a *API) upload(ctx context.Context, b image.Blob) (image.Handle, error) {
	if !a.Remote() {
		return a.registry.Materialize(ctx, b)
	}
	url, err := a.client.UploadImage(ctx, b)
	if err != nil {
		return "", err
	}
	if a.metrics != nil {
		a.metrics.IncUploads()
	}
	return image.Handle(url), nil
}

// uploadHandles replaces every runtime handle in s by the URL of an
// uploaded copy. Uploads run one at a time and each distinct handle is
// uploaded once per memo.
func (a *API) uploadHandles(ctx context.Context, s Session, memo map[image.Handle]image.Handle) (Session, error) {
	out := s.Clone()
	lists := [][]image.Full{out.Images, out.Flattened}
	for _, list := range lists {
		for j := range list {
			src := list[j].Src
			if !src.IsRuntime() {
				continue
			}
			if url, ok := memo[src]; ok {
				list[j].Src = url
				continue
			}

			b, err := a.registry.Fetch(ctx, src)
			if err != nil {
				return Session{}, err
			}
			url, err := a.upload(ctx, b)
			if err != nil {
				return Session{}, err
			}
			memo[src] = url
			list[j].Src = url
		}
	}
	return out, nil
}

// Flatten renders session i at zoom and stores the result as its
// flattened image list
func (a *API) Flatten(ctx context.Context, i int, zoom float64) error {
	return notify.Track(a.notifier, opFlatten, func() error {
		if a.runner == nil {
			return flatten.ErrNotConfigured
		}
		s, err := a.Session(i)
		if err != nil {
			return err
		}
		if s.Len() == 0 {
			return fmt.Errorf("flatten session %d: %w", i, viewer.ErrNoImages)
		}

		r := image.Reduce(s.Images)
		if err := a.codec.ToText(ctx, r); err != nil {
			return err
		}
		rendered, err := a.runner.Flatten(ctx, r, zoom)
		if err != nil {
			return err
		}

		flattened := make([]image.Full, len(rendered))
		for j, data := range rendered {
			h, err := a.registry.Materialize(ctx, image.NewBlob(data))
			if err != nil {
				return err
			}
			flattened[j] = image.Full{Meta: image.Meta{Alt: j, Scale: 1}, Src: h}
		}

		s.Flattened = flattened
		return a.edit(ctx, i, s)
	})
}

// Compile renders session i at zoom into a zip archive
func (a *API) Compile(ctx context.Context, i int, zoom float64) (ExportFile, error) {
	var file ExportFile
	err := notify.Track(a.notifier, opCompile, func() error {
		if a.runner == nil {
			return flatten.ErrNotConfigured
		}
		s, err := a.Session(i)
		if err != nil {
			return err
		}
		if s.Len() == 0 {
			return fmt.Errorf("compile session %d: %w", i, viewer.ErrNoImages)
		}

		r := image.Reduce(s.Images)
		if err := a.codec.ToText(ctx, r); err != nil {
			return err
		}
		archive, err := a.runner.Compile(ctx, r, zoom)
		if err != nil {
			return err
		}
		file = ExportFile{
			Name: fmt.Sprintf("images-%d.zip", a.now().UnixMilli()),
			Data: archive,
		}
		return nil
	})
	return file, err
}

// Close releases every runtime handle and the local store
func (a *API) Close() error {
	a.registry.ReleaseAll()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// persist writes the current collection in local mode
func (a *API) persist(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	snapshot := a.Sessions()
	a.recordCount(len(snapshot))
	return a.store.SaveAll(ctx, snapshot)
}

func (a *API) recordCount(n int) {
	if a.metrics != nil {
		a.metrics.SetSessions(n)
	}
}

// checkIndex must be called with mu held
func (a *API) checkIndex(i int) error {
	if i < 0 || i >= len(a.sessions) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, i, len(a.sessions))
	}
	return nil
}

// indexOf finds the session with id, preferring position hint. Must be
// called with mu held.
func (a *API) indexOf(id string, hint int) int {
	if hint >= 0 && hint < len(a.sessions) && a.sessions[hint].ID == id {
		return hint
	}
	for j, s := range a.sessions {
		if s.ID == id {
			return j
		}
	}
	return -1
}

func deleteAt(sessions []Session, i int) []Session {
	out := make([]Session, 0, len(sessions)-1)
	out = append(out, sessions[:i]...)
	return append(out, sessions[i+1:]...)
}
