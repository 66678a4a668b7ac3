package cdn

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

var jpegPayload = []byte{0xFF, 0xD8, 0xFF, 0xE0, 'f', 'a', 'k', 'e'}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClient points a Client at an httptest server instead of a real CDN.
func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	c := NewClient("primary-cdn", u.Host, "GOES16", 5*time.Second, discardLogger())
	c.httpClient = srv.Client()
	// httptest serves plain HTTP; rewrite the scheme via transport.
	c.httpClient.Transport = rewriteToHTTP(c.httpClient.Transport)
	return c
}

type schemeRewriter struct{ inner http.RoundTripper }

func (s schemeRewriter) RoundTrip(r *http.Request) (*http.Response, error) {
	r.URL.Scheme = "http"
	return s.inner.RoundTrip(r)
}

func rewriteToHTTP(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return schemeRewriter{inner: rt}
}

func ch13(t *testing.T) domain.ChannelSpec {
	t.Helper()
	ch, ok := domain.LookupChannel(13)
	require.True(t, ok)
	return ch
}

func imageRequest(t *testing.T) domain.AcquisitionRequest {
	t.Helper()
	return domain.AcquisitionRequest{
		Channel:  ch13(t),
		Domain:   domain.FullDisk,
		Mode:     domain.ModeImageProduct,
		SizeHint: "1808x1808",
	}
}

func TestClient_URL(t *testing.T) {
	c := NewClient("primary-cdn", "cdn.star.nesdis.noaa.gov", "GOES16", time.Second, discardLogger())

	u, err := c.URL(imageRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.star.nesdis.noaa.gov/GOES16/ABI/FD/latest/13_1808x1808.jpg", u)
}

func TestClient_URL_Composite(t *testing.T) {
	geocolor, ok := domain.ChannelByID("GEOCOLOR")
	require.True(t, ok)

	c := NewClient("primary-cdn", "cdn.star.nesdis.noaa.gov", "GOES16", time.Second, discardLogger())
	u, err := c.URL(domain.AcquisitionRequest{
		Channel: geocolor,
		Domain:  domain.CONUS,
		Mode:    domain.ModeImageProduct,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.star.nesdis.noaa.gov/GOES16/ABI/CONUS/latest/GEOCOLOR_1200x1200.jpg", u)
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/GOES16/ABI/FD/latest/13_1808x1808.jpg"), "unexpected path %s", r.URL.Path)
		w.Write(jpegPayload)
	}))
	defer srv.Close()

	payload, err := testClient(t, srv).Fetch(context.Background(), imageRequest(t))
	require.NoError(t, err)
	assert.Equal(t, jpegPayload, payload)
}

func TestClient_Fetch_NotFoundIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Fetch(context.Background(), imageRequest(t))
	require.Error(t, err)
	assert.Equal(t, domain.KindNetworkPermanent, domain.Classify(err))
}

func TestClient_Fetch_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Fetch(context.Background(), imageRequest(t))
	require.Error(t, err)
	assert.Equal(t, domain.KindNetworkTransient, domain.Classify(err))
}

func TestClient_Fetch_NonJPEGIsCorrupt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>maintenance page</html>"))
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Fetch(context.Background(), imageRequest(t))
	require.Error(t, err)
	assert.Equal(t, domain.KindDataCorrupt, domain.Classify(err))

	var se *domain.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "primary-cdn", se.Source)
}

func TestClient_Probe(t *testing.T) {
	var sawHead bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			sawHead = true
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	ok, err := testClient(t, srv).Probe(context.Background(), imageRequest(t))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, sawHead, "probe must use HEAD")
}

func TestClient_Probe_NotFoundIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ok, err := testClient(t, srv).Probe(context.Background(), imageRequest(t))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_UndeclaredDomain(t *testing.T) {
	c := NewClient("primary-cdn", "cdn.example.test", "GOES16", time.Second, discardLogger())

	req := imageRequest(t)
	req.Domain = domain.ProductDomain("ANTARCTIC")
	_, err := c.Fetch(context.Background(), req)
	require.Error(t, err)

	var ce *domain.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}
