package session

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/imageviewer/internal/providers/remote"
	"github.com/GriffinCanCode/imageviewer/internal/providers/storage"
	"github.com/GriffinCanCode/imageviewer/internal/testutil"
)

func openRemote(t *testing.T, srv *testutil.SyncServer, mutate ...func(*Options)) *API {
	t.Helper()
	opts := Options{
		Remote: &Credentials{URL: srv.URL, Password: srv.Password},
		Clock:  fixedClock,
	}
	for _, m := range mutate {
		m(&opts)
	}
	api, err := Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = api.Close() })
	return api
}

// recordImages decodes the imgs field of a stored server record
func recordImages(t *testing.T, rec map[string]any, field string) []image.Full {
	t.Helper()
	raw, err := json.Marshal(rec[field])
	require.NoError(t, err)
	var images []image.Full
	require.NoError(t, json.Unmarshal(raw, &images))
	return images
}

func TestRemoteOpenListsSessions(t *testing.T) {
	srv := testutil.NewSyncServer(t)
	id := srv.Seed(map[string]any{
		"name":        "seeded",
		"activeIndex": 1,
		"show":        true,
		"imgs": []map[string]any{
			{"alt": 0, "scale": 1, "src": srv.URL + "/img/a"},
			{"alt": 1, "scale": 2, "src": srv.URL + "/img/b"},
		},
		"flattened": nil,
	})

	api := openRemote(t, srv)
	assert.True(t, api.Remote())

	sessions := api.Sessions()
	require.Len(t, sessions, 1)
	s := sessions[0]
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "seeded", s.Name)
	assert.Equal(t, 1, s.Focus)
	assert.True(t, s.Visible)
	require.Len(t, s.Images, 2)
	assert.Equal(t, image.Handle(srv.URL+"/img/b"), s.Images[1].Src)
	assert.Equal(t, 2.0, s.Images[1].Scale)
	assert.Nil(t, s.Flattened)
}

func TestRemoteLoginFailure(t *testing.T) {
	srv := testutil.NewSyncServer(t)

	_, err := Open(context.Background(), Options{
		Remote: &Credentials{URL: srv.URL, Password: "wrong"},
	})
	assert.ErrorIs(t, err, remote.ErrLoginFailed)
}

func TestRemoteModeIgnoresLocalStore(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewSyncServer(t)
	kv := storage.NewMemory()

	api := openRemote(t, srv, func(o *Options) { o.KV = kv })
	_, err := api.Append(ctx, api.NewSession(nil))
	require.NoError(t, err)

	_, err = kv.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Len(t, srv.Sessions(), 1)
}

func TestRemoteAppendUploadsOncePerHandle(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewSyncServer(t)
	api := openRemote(t, srv)

	a := materialize(t, api.Registry(), pngBlob(1))
	b := materialize(t, api.Registry(), pngBlob(2))
	s := api.NewSession(fulls(a, a, b))

	idx, err := api.Append(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Len(t, srv.Uploads(), 2)

	got, err := api.Session(0)
	require.NoError(t, err)
	require.NotEmpty(t, got.ID)
	for _, im := range got.Images {
		assert.True(t, im.Src.IsRemote(), "src %s", im.Src)
	}
	assert.Equal(t, got.Images[0].Src, got.Images[1].Src)

	records := srv.Sessions()
	require.Len(t, records, 1)
	assert.Equal(t, got.ID, records[0]["id"])
	assert.Equal(t, s.Name, records[0]["name"])
	stored := recordImages(t, records[0], "imgs")
	require.Len(t, stored, 3)
	upload, ok := srv.Image(string(stored[2].Src))
	require.True(t, ok)
	assert.Equal(t, pngBlob(2).Data, upload.Data)
}

func TestRemoteEditUploadsDistinctHandles(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewSyncServer(t)
	api := openRemote(t, srv)

	_, err := api.Append(ctx, api.NewSession(nil))
	require.NoError(t, err)
	require.Empty(t, srv.Uploads())
	before, err := api.Session(0)
	require.NoError(t, err)

	shared := materialize(t, api.Registry(), pngBlob(1))
	distinct := materialize(t, api.Registry(), pngBlob(2))
	edited := before.SetImages(fulls(shared, distinct, shared)).Rename("edited")

	require.NoError(t, api.Edit(ctx, 0, edited))

	assert.Len(t, srv.Uploads(), 2)
	assert.Contains(t, srv.Requests(), http.MethodPut+" /sessions/"+before.ID)

	after, err := api.Session(0)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "edited", after.Name)
	assert.True(t, after.Visible)
	require.Len(t, after.Images, 3)
	assert.Equal(t, after.Images[0].Src, after.Images[2].Src)
	assert.NotEqual(t, after.Images[0].Src, after.Images[1].Src)

	records := srv.Sessions()
	require.Len(t, records, 1)
	assert.Equal(t, "edited", records[0]["name"])

	// already uploaded URLs are not uploaded again
	require.NoError(t, api.Edit(ctx, 0, after.Rename("again")))
	assert.Len(t, srv.Uploads(), 2)
}

func TestRemoteEditFailureKeepsEntry(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewSyncServer(t)
	api := openRemote(t, srv)

	_, err := api.Append(ctx, api.NewSession(nil))
	require.NoError(t, err)
	before, err := api.Session(0)
	require.NoError(t, err)

	h := materialize(t, api.Registry(), pngBlob(1))
	srv.FailNext(http.MethodPut, "/sessions/"+before.ID, http.StatusInternalServerError)

	err = api.Edit(ctx, 0, before.SetImages(fulls(h)))

	var se *remote.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)

	after, err := api.Session(0)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	// the upload happened before the failed write and stays orphaned
	assert.Len(t, srv.Uploads(), 1)
}

func TestRemoteConflictCountsAsSuccess(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewSyncServer(t)
	id := srv.Seed(map[string]any{"name": "a", "imgs": []any{}})
	api := openRemote(t, srv)

	srv.FailNext(http.MethodPut, "/sessions/"+id, http.StatusConflict)
	s, err := api.Session(0)
	require.NoError(t, err)
	require.NoError(t, api.Edit(ctx, 0, s.Rename("b")))

	got, err := api.Session(0)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name)
}

func TestRemoteRemove(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewSyncServer(t)
	first := srv.Seed(map[string]any{"name": "first", "imgs": []any{}})
	second := srv.Seed(map[string]any{"name": "second", "imgs": []any{}})
	api := openRemote(t, srv)

	require.NoError(t, api.Remove(ctx, 0))

	assert.Contains(t, srv.Requests(), http.MethodDelete+" /sessions/"+first)
	records := srv.Sessions()
	require.Len(t, records, 1)
	assert.Equal(t, second, records[0]["id"])

	sessions := api.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, second, sessions[0].ID)
}

func TestRemoteRequiresIDs(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewSyncServer(t)
	srv.Seed(map[string]any{"name": "anonymous", "imgs": []any{}})
	srv.HideIDs = true
	api := openRemote(t, srv)

	s, err := api.Session(0)
	require.NoError(t, err)
	require.False(t, s.HasID())

	assert.ErrorIs(t, api.Remove(ctx, 0), ErrMissingID)
	assert.ErrorIs(t, api.Edit(ctx, 0, s.Rename("x")), ErrMissingID)

	assert.Equal(t, 1, api.Len())
	for _, req := range srv.Requests() {
		assert.NotContains(t, req, http.MethodDelete)
		assert.NotContains(t, req, http.MethodPut)
	}
}

func TestRemoteImportReplacesEverything(t *testing.T) {
	ctx := context.Background()

	local := openLocal(t, storage.NewMemory())
	_, err := local.Append(ctx, localSession(t, local, 2).Rename("imported"))
	require.NoError(t, err)
	file, err := local.Export(ctx)
	require.NoError(t, err)

	srv := testutil.NewSyncServer(t)
	srv.Seed(map[string]any{"name": "old-1", "imgs": []any{}})
	srv.Seed(map[string]any{"name": "old-2", "imgs": []any{}})
	api := openRemote(t, srv)
	require.Equal(t, 2, api.Len())

	require.NoError(t, api.Import(ctx, file.Data))

	assert.Contains(t, srv.Requests(), http.MethodDelete+" /sessions/")
	assert.Len(t, srv.Uploads(), 2)

	records := srv.Sessions()
	require.Len(t, records, 1)
	assert.Equal(t, "imported", records[0]["name"])

	sessions := api.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, records[0]["id"], sessions[0].ID)
	assert.True(t, sessions[0].Images[0].Src.IsRemote())
}

func TestRemoteExportFetchesServedImages(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewSyncServer(t)
	api := openRemote(t, srv)

	h := materialize(t, api.Registry(), pngBlob(5))
	_, err := api.Append(ctx, api.NewSession(fulls(h)))
	require.NoError(t, err)

	// drop the local copy so the bytes must come back from the service
	api.Registry().ReleaseAll()

	file, err := api.Export(ctx)
	require.NoError(t, err)

	var doc struct {
		Sessions []struct {
			Imgs *image.Reduced `json:"imgs_r"`
		} `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(file.Data, &doc))
	require.Len(t, doc.Sessions, 1)
	require.Len(t, doc.Sessions[0].Imgs.Payloads, 1)
	b, err := image.ParseDataURL(doc.Sessions[0].Imgs.Payloads[0].Text)
	require.NoError(t, err)
	assert.Equal(t, pngBlob(5).Data, b.Data)
}

func TestRemoteUploadImage(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewSyncServer(t)
	metrics := monitoring.NewMetrics()
	api := openRemote(t, srv, func(o *Options) { o.Metrics = metrics })

	h, err := api.UploadImage(ctx, pngBlob(1))
	require.NoError(t, err)

	assert.True(t, h.IsRemote())
	assert.Equal(t, []string{string(h)}, srv.Uploads())

	summary, err := metrics.Summary()
	require.NoError(t, err)
	var uploads int
	for _, s := range summary {
		if s.Op == opUpload {
			uploads = s.Successes
		}
	}
	assert.Equal(t, 1, uploads)
}

func TestRemoteFlattenUploadsRendering(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewSyncServer(t)
	runner := &fakeRunner{}
	api := openRemote(t, srv, func(o *Options) { o.Runner = runner })

	h := materialize(t, api.Registry(), pngBlob(7))
	_, err := api.Append(ctx, api.NewSession(fulls(h)))
	require.NoError(t, err)
	require.Len(t, srv.Uploads(), 1)

	require.NoError(t, api.Flatten(ctx, 0, 1))

	assert.Len(t, srv.Uploads(), 2)
	got, err := api.Session(0)
	require.NoError(t, err)
	require.Len(t, got.Flattened, 1)
	assert.True(t, got.Flattened[0].Src.IsRemote())

	flattened := recordImages(t, srv.Sessions()[0], "flattened")
	require.Len(t, flattened, 1)
	upload, ok := srv.Image(string(flattened[0].Src))
	require.True(t, ok)
	assert.Equal(t, pngBlob(7).Data, upload.Data)
}
