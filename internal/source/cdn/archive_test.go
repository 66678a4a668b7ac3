package cdn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

func testArchive(t *testing.T, srv *httptest.Server) *ArchiveClient {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	c := NewArchiveClient(u.Host, "GOES16", 5*time.Second, discardLogger())
	c.httpClient = srv.Client()
	c.httpClient.Transport = rewriteToHTTP(c.httpClient.Transport)
	return c
}

func archiveServer(t *testing.T, frames []archiveFrame) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/archive/GOES16/ABI/FD/13/index.json":
			require.NoError(t, json.NewEncoder(w).Encode(archiveIndex{Frames: frames}))
		default:
			w.Write(append(jpegPayload, []byte(r.URL.Path)...))
		}
	}))
}

func TestArchiveClient_Fetch_NearestFrame(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	frames := []archiveFrame{
		{StartTime: base.Add(-3 * time.Hour), Path: "/frames/early.jpg"},
		{StartTime: base.Add(-30 * time.Minute), Path: "/frames/close.jpg"},
		{StartTime: base.Add(2 * time.Hour), Path: "/frames/late.jpg"},
	}
	srv := archiveServer(t, frames)
	defer srv.Close()

	req := imageRequest(t)
	req.Timestamp = &base

	payload, err := testArchive(t, srv).Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "/frames/close.jpg")
}

func TestArchiveClient_Fetch_LatestWhenNoTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	frames := []archiveFrame{
		{StartTime: base.Add(-2 * time.Hour), Path: "/frames/older.jpg"},
		{StartTime: base, Path: "/frames/newest.jpg"},
	}
	srv := archiveServer(t, frames)
	defer srv.Close()

	payload, err := testArchive(t, srv).Fetch(context.Background(), imageRequest(t))
	require.NoError(t, err)
	assert.Contains(t, string(payload), "/frames/newest.jpg")
}

func TestArchiveClient_Fetch_EmptyIndexIsPermanent(t *testing.T) {
	srv := archiveServer(t, nil)
	defer srv.Close()

	_, err := testArchive(t, srv).Fetch(context.Background(), imageRequest(t))
	require.Error(t, err)
	assert.Equal(t, domain.KindNetworkPermanent, domain.Classify(err))
}

func TestArchiveClient_Probe(t *testing.T) {
	srv := archiveServer(t, []archiveFrame{{StartTime: time.Now().UTC(), Path: "/frames/a.jpg"}})
	defer srv.Close()

	ok, err := testArchive(t, srv).Probe(context.Background(), imageRequest(t))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArchiveClient_MalformedIndexIsCorrupt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := testArchive(t, srv).Fetch(context.Background(), imageRequest(t))
	require.Error(t, err)
	assert.Equal(t, domain.KindDataCorrupt, domain.Classify(err))
}
