package export

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/errs"
	"github.com/koustreak/sqlbridge/internal/filestore"
)

type memStore struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{buckets: map[string]bool{}, objects: map[string][]byte{}}
}

func (s *memStore) Ping(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

func (s *memStore) EnsureBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[bucket] = true
	return nil
}

func (s *memStore) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, ct string) (*filestore.ObjectInfo, error) {
	if s.putErr != nil {
		return nil, s.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = b
	return &filestore.ObjectInfo{Key: key, Size: size, ContentType: ct}, nil
}

func (s *memStore) StatObject(_ context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key")
	}
	return &filestore.ObjectInfo{Key: key, Size: int64(len(b))}, nil
}

func (s *memStore) ListObjects(_ context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []filestore.ObjectInfo
	for k, b := range s.objects {
		key := strings.TrimPrefix(k, bucket+"/")
		if strings.HasPrefix(key, opts.Prefix) {
			out = append(out, filestore.ObjectInfo{Key: key, Size: int64(len(b))})
		}
	}
	return out, nil
}

func (s *memStore) PresignGetURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "http://store.local/" + bucket + "/" + key + "?ttl=" + ttl.String(), nil
}

func newExporter(store filestore.Store) *Exporter {
	cfg := filestore.DefaultConfig("localhost:9000", "k", "s")
	e := New(store, cfg, nil)
	e.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return e
}

func TestExport(t *testing.T) {
	store := newMemStore()
	e := newExporter(store)
	require.NoError(t, e.Prepare(context.Background()))
	assert.True(t, store.buckets["sqlbridge-exports"])

	id := uuid.MustParse("6f1c2a8e-0d4b-4b7e-9a55-2f1d3c4b5a69")
	rs := &adapter.ResultSet{
		ColumnNames: []string{"id", "total", "ref"},
		ColumnTypes: []adapter.ColumnType{adapter.ColumnTypeInt64, adapter.ColumnTypeNumeric, adapter.ColumnTypeUuid},
		Rows: [][]any{
			{int64(1), decimal.RequireFromString("9.99"), id},
			{int64(2), nil, nil},
		},
	}

	res, err := e.Export(context.Background(), "Daily Orders", adapter.ProviderSqlite, rs)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Object.Key, "exports/2024/05/01/daily-orders-"))
	assert.True(t, strings.HasSuffix(res.Object.Key, ".json"))
	assert.Equal(t, "application/json", res.Object.ContentType)
	assert.Contains(t, res.URL, res.Object.Key)
	assert.Contains(t, res.URL, "ttl=15m0s")

	body := string(store.objects["sqlbridge-exports/"+res.Object.Key])
	assert.JSONEq(t, `{
		"name": "Daily Orders",
		"provider": "sqlite",
		"exported_at": "2024-05-01T09:30:00Z",
		"columns": [
			{"name": "id", "type": "Int64"},
			{"name": "total", "type": "Numeric"},
			{"name": "ref", "type": "Uuid"}
		],
		"rows": [
			[1, "9.99", "6f1c2a8e-0d4b-4b7e-9a55-2f1d3c4b5a69"],
			[2, null, null]
		]
	}`, body)

	list, err := e.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Object.Key, list[0].Key)

	got, err := e.Get(context.Background(), res.Object.Key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), got.Object.Size)
	assert.Equal(t, res.URL, got.URL)
}

func TestGet_NotFound(t *testing.T) {
	e := newExporter(newMemStore())

	_, err := e.Get(context.Background(), "exports/2024/05/01/missing.json")
	assert.True(t, errs.IsNotFound(err))

	_, err = e.Get(context.Background(), "private/secret.json")
	assert.True(t, errs.IsNotFound(err))
}

func TestExport_StoreError(t *testing.T) {
	store := newMemStore()
	store.putErr = errs.New(errs.ErrKindPermissionDenied, "access denied")
	e := newExporter(store)

	_, err := e.Export(context.Background(), "", adapter.ProviderMysql, &adapter.ResultSet{})
	assert.True(t, errs.IsPermissionDenied(err))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "query", slug("  "))
	assert.Equal(t, "users_by-day", slug("Users_by-Day"))
	assert.Equal(t, "a-b-c", slug("a/b c"))
}
