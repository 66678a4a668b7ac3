package manager_test

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/goes-imagery/internal/cache"
	"github.com/couchcryptid/goes-imagery/internal/cascade"
	"github.com/couchcryptid/goes-imagery/internal/domain"
	"github.com/couchcryptid/goes-imagery/internal/manager"
	"github.com/couchcryptid/goes-imagery/internal/observability"
	"github.com/couchcryptid/goes-imagery/internal/retry"
)

// --- fakes ---

// scriptedSource fails requests for channels listed in failKinds and
// serves payload for everything else.
type scriptedSource struct {
	name      string
	payload   []byte
	failKinds map[string]domain.ErrorKind
	gate      chan struct{} // when set, Fetch blocks until closed
	calls     atomic.Int64
}

func (s *scriptedSource) Name() string { return s.name }

func (s *scriptedSource) Probe(context.Context, domain.AcquisitionRequest) (bool, error) {
	return true, nil
}

func (s *scriptedSource) Fetch(_ context.Context, req domain.AcquisitionRequest) ([]byte, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if kind, ok := s.failKinds[req.Channel.ID]; ok {
		return nil, &domain.SourceError{Source: s.name, Op: "fetch", Kind: kind, Err: errors.New("scripted failure")}
	}
	return s.payload, nil
}

type fakeStore struct {
	listings map[string][]string
	objects  map[string][]byte
}

func (f *fakeStore) Name() string { return "object-store" }

func (f *fakeStore) List(_ context.Context, prefix string) ([]string, error) {
	return f.listings[prefix], nil
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, &domain.SourceError{Source: "object-store", Op: "get", Kind: domain.KindNetworkPermanent, Err: errors.New("missing")}
	}
	return body, nil
}

// --- helpers ---

func fastPolicy() *retry.Policy {
	return &retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ch(t *testing.T, n int) domain.ChannelSpec {
	t.Helper()
	c, ok := domain.LookupChannel(n)
	require.True(t, ok)
	return c
}

func newManager(t *testing.T, store cascade.ObjectStore, webSources ...cascade.WebSource) *manager.Manager {
	t.Helper()
	metrics := observability.NewMetricsForTesting()

	webStrategies := make([]cascade.Strategy, 0, len(webSources))
	for _, s := range webSources {
		webStrategies = append(webStrategies, cascade.NewWebStrategy(s, fastPolicy()))
	}
	web := cascade.New(webStrategies, discardLogger(), metrics)

	var raw *cascade.Cascade
	if store != nil {
		raw = cascade.New([]cascade.Strategy{
			cascade.NewWindowSearch(store, fastPolicy(), 6, clockwork.NewRealClock()),
		}, discardLogger(), metrics)
	} else {
		raw = cascade.New(nil, discardLogger(), metrics)
	}

	results := cache.New(64, time.Minute, clockwork.NewRealClock())
	return manager.New(web, raw, results, t.TempDir(), clockwork.NewRealClock(), discardLogger(), metrics)
}

func imageRequest(t *testing.T, n int) domain.AcquisitionRequest {
	t.Helper()
	return domain.AcquisitionRequest{
		Channel: ch(t, n),
		Domain:  domain.FullDisk,
		Mode:    domain.ModeImageProduct,
	}
}

// scenePayload mirrors the raw scene container: 20-byte header plus
// big-endian counts.
func scenePayload(width, height int, counts []uint16) []byte {
	buf := make([]byte, 20+len(counts)*2)
	copy(buf[:4], "GRAD")
	binary.BigEndian.PutUint16(buf[4:6], uint16(width))
	binary.BigEndian.PutUint16(buf[6:8], uint16(height))
	binary.BigEndian.PutUint16(buf[8:10], 13)
	binary.BigEndian.PutUint32(buf[12:16], math.Float32bits(1))
	binary.BigEndian.PutUint32(buf[16:20], math.Float32bits(0))
	for i, c := range counts {
		binary.BigEndian.PutUint16(buf[20+i*2:], c)
	}
	return buf
}

// --- tests ---

func TestGetImagery_PrimarySuccess(t *testing.T) {
	primary := &scriptedSource{name: "primary-cdn", payload: []byte("jpeg-bytes")}
	m := newManager(t, nil, primary)

	result, err := m.GetImagery(context.Background(), imageRequest(t, 13))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "primary-cdn", result.SourceUsed)
	assert.Equal(t, 1, result.AttemptsMade)
	assert.True(t, result.CheckFileExists())
	assert.Equal(t, int64(len("jpeg-bytes")), result.ByteSize)
	assert.True(t, strings.HasSuffix(result.FilePath, ".jpg"))
}

func TestGetImagery_MirrorFallback(t *testing.T) {
	primary := &scriptedSource{name: "primary-cdn", failKinds: map[string]domain.ErrorKind{"C13": domain.KindNetworkPermanent}}
	mirror := &scriptedSource{name: "mirror-cdn", payload: []byte("jpeg-bytes")}
	m := newManager(t, nil, primary, mirror)

	result, err := m.GetImagery(context.Background(), imageRequest(t, 13))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "mirror-cdn", result.SourceUsed)
	assert.Len(t, result.Trace, 2)
}

func TestGetImagery_AllTransient_ClassifiedNonThrowing(t *testing.T) {
	primary := &scriptedSource{name: "primary-cdn", failKinds: map[string]domain.ErrorKind{"C13": domain.KindNetworkTransient}}
	mirror := &scriptedSource{name: "mirror-cdn", failKinds: map[string]domain.ErrorKind{"C13": domain.KindNetworkTransient}}
	m := newManager(t, nil, primary, mirror)

	result, err := m.GetImagery(context.Background(), imageRequest(t, 13))
	require.NoError(t, err, "expected network failures must not surface as errors")

	assert.False(t, result.Success)
	assert.Equal(t, domain.KindNetworkTransient, result.FailureKind)
	assert.Contains(t, result.Diagnosis, "connectivity")
	assert.NotEmpty(t, result.Trace)
}

func TestGetImagery_ConfigurationErrorSurfaces(t *testing.T) {
	m := newManager(t, nil, &scriptedSource{name: "primary-cdn", payload: []byte("x")})

	geocolor, ok := domain.ChannelByID("GEOCOLOR")
	require.True(t, ok)

	_, err := m.GetImagery(context.Background(), domain.AcquisitionRequest{
		Channel: geocolor,
		Domain:  domain.FullDisk,
		Mode:    domain.ModeRawData,
	})
	require.Error(t, err)

	var ce *domain.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestGetImagery_CacheHitSkipsFetch(t *testing.T) {
	primary := &scriptedSource{name: "primary-cdn", payload: []byte("jpeg-bytes")}
	m := newManager(t, nil, primary)

	_, err := m.GetImagery(context.Background(), imageRequest(t, 13))
	require.NoError(t, err)
	_, err = m.GetImagery(context.Background(), imageRequest(t, 13))
	require.NoError(t, err)

	assert.Equal(t, int64(1), primary.calls.Load())
}

func TestGetImagery_ConcurrentIdenticalRequests_SingleFetch(t *testing.T) {
	primary := &scriptedSource{name: "primary-cdn", payload: []byte("jpeg-bytes"), gate: make(chan struct{})}
	m := newManager(t, nil, primary)

	var wg sync.WaitGroup
	results := make([]domain.AcquisitionResult, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := m.GetImagery(context.Background(), imageRequest(t, 2))
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}

	// Let both callers reach the cache before the fetch completes.
	time.Sleep(50 * time.Millisecond)
	close(primary.gate)
	wg.Wait()

	assert.Equal(t, int64(1), primary.calls.Load(), "identical concurrent requests must share one fetch")
	assert.Equal(t, results[0].FilePath, results[1].FilePath)
}

func TestGetImagery_RawData_WindowFallbackAndProcessing(t *testing.T) {
	target := time.Date(2023, 6, 15, 18, 10, 0, 0, time.UTC)
	key := "ABI-L1b-RadF/2023/166/17/OR_ABI-L1b-RadF-M6C13_G16_s20231661701131_e1_c1.nc"

	store := &fakeStore{
		listings: map[string][]string{"ABI-L1b-RadF/2023/166/17/": {key}},
		objects:  map[string][]byte{key: scenePayload(4, 4, make([]uint16, 16))},
	}
	m := newManager(t, store)

	result, err := m.GetImagery(context.Background(), domain.AcquisitionRequest{
		Channel:   ch(t, 13),
		Domain:    domain.FullDisk,
		Mode:      domain.ModeRawData,
		Level:     domain.LevelFullResolution,
		Timestamp: &target,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "object-store", result.SourceUsed)
	assert.Equal(t, -1, result.WindowOffset)
	assert.True(t, result.CheckFileExists())
	assert.Equal(t, ".png", filepath.Ext(result.FilePath))
}

func TestGetImagery_RawData_CorruptPayload(t *testing.T) {
	target := time.Date(2023, 6, 15, 18, 10, 0, 0, time.UTC)
	key := "ABI-L1b-RadF/2023/166/18/OR_ABI-L1b-RadF-M6C13_G16_s20231661801131_e1_c1.nc"

	store := &fakeStore{
		listings: map[string][]string{"ABI-L1b-RadF/2023/166/18/": {key}},
		objects:  map[string][]byte{key: []byte("not a scene")},
	}
	m := newManager(t, store)

	result, err := m.GetImagery(context.Background(), domain.AcquisitionRequest{
		Channel:   ch(t, 13),
		Domain:    domain.FullDisk,
		Mode:      domain.ModeRawData,
		Timestamp: &target,
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, domain.KindDataCorrupt, result.FailureKind)
}

func TestGetImageryBatch_IsolatedFailures(t *testing.T) {
	// C13 and C14 permanently fail; C01 and C02 succeed.
	primary := &scriptedSource{
		name:    "primary-cdn",
		payload: []byte("jpeg-bytes"),
		failKinds: map[string]domain.ErrorKind{
			"C13": domain.KindNetworkPermanent,
			"C14": domain.KindNetworkPermanent,
		},
	}
	m := newManager(t, nil, primary)

	reqs := []domain.AcquisitionRequest{
		imageRequest(t, 1), imageRequest(t, 2), imageRequest(t, 13), imageRequest(t, 14),
	}
	out := m.GetImageryBatch(context.Background(), reqs, 3)

	require.Len(t, out, 4)
	successes, failures := 0, 0
	for _, r := range out {
		if r.Success {
			successes++
		} else {
			failures++
			assert.Equal(t, domain.KindNetworkPermanent, r.FailureKind)
		}
	}
	assert.Equal(t, 2, successes)
	assert.Equal(t, 2, failures)
}

func TestGetImageryBatch_ConfigurationErrorBecomesResult(t *testing.T) {
	m := newManager(t, nil, &scriptedSource{name: "primary-cdn", payload: []byte("x")})

	geocolor, ok := domain.ChannelByID("GEOCOLOR")
	require.True(t, ok)
	bad := domain.AcquisitionRequest{Channel: geocolor, Domain: domain.FullDisk, Mode: domain.ModeRawData}

	out := m.GetImageryBatch(context.Background(), []domain.AcquisitionRequest{bad, imageRequest(t, 2)}, 2)

	require.Len(t, out, 2)
	badResult, ok := out[bad.Fingerprint()]
	require.True(t, ok)
	assert.False(t, badResult.Success)
	assert.Equal(t, domain.KindConfiguration, badResult.FailureKind)
}

func TestCheckReadiness(t *testing.T) {
	m := newManager(t, nil, &scriptedSource{name: "primary-cdn", payload: []byte("x")})
	assert.NoError(t, m.CheckReadiness(context.Background()))
}
