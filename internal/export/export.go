// Package export writes query results to object storage as JSON documents.
package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/koustreak/sqlbridge/internal/adapter"
	"github.com/koustreak/sqlbridge/internal/errs"
	"github.com/koustreak/sqlbridge/internal/filestore"
	"github.com/koustreak/sqlbridge/internal/logger"
)

const contentType = "application/json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Column is one column of an exported document.
type Column struct {
	Name string             `json:"name"`
	Type adapter.ColumnType `json:"type"`
}

// Document is the stored form of a result set.
type Document struct {
	Name       string    `json:"name"`
	Provider   string    `json:"provider"`
	ExportedAt time.Time `json:"exported_at"`
	Columns    []Column  `json:"columns"`
	Rows       [][]any   `json:"rows"`
}

// Result points at an exported document.
type Result struct {
	Object filestore.ObjectInfo `json:"object"`
	URL    string               `json:"url"`
}

// Exporter uploads result sets to one bucket.
type Exporter struct {
	store  filestore.Store
	bucket string
	prefix string
	ttl    time.Duration
	log    *logger.Logger
	now    func() time.Time
}

// New returns an Exporter writing to cfg.Bucket under cfg.Prefix.
func New(store filestore.Store, cfg *filestore.Config, log *logger.Logger) *Exporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Exporter{
		store:  store,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		ttl:    cfg.URLExpiry,
		log:    log.Component("export"),
		now:    time.Now,
	}
}

// Prepare checks the store is reachable and makes sure the bucket exists.
func (e *Exporter) Prepare(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	return e.store.EnsureBucket(ctx, e.bucket)
}

// Export stores rs and returns where it went plus a time-limited download URL.
func (e *Exporter) Export(ctx context.Context, name string, provider adapter.Provider, rs *adapter.ResultSet) (*Result, error) {
	now := e.now().UTC()
	doc := Document{
		Name:       name,
		Provider:   string(provider),
		ExportedAt: now,
		Columns:    make([]Column, len(rs.ColumnNames)),
		Rows:       rs.Rows,
	}
	for i, n := range rs.ColumnNames {
		doc.Columns[i] = Column{Name: n}
		if i < len(rs.ColumnTypes) {
			doc.Columns[i].Type = rs.ColumnTypes[i]
		}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConversion, "failed to encode result set", err)
	}

	key := e.objectKey(name, now)
	info, err := e.store.PutObject(ctx, e.bucket, key, bytes.NewReader(body), int64(len(body)), contentType)
	if err != nil {
		return nil, err
	}

	url, err := e.store.PresignGetURL(ctx, e.bucket, key, e.ttl)
	if err != nil {
		return nil, err
	}

	e.log.InfoWith("result set exported", map[string]any{
		"key":  key,
		"rows": len(rs.Rows),
		"size": len(body),
	})
	return &Result{Object: *info, URL: url}, nil
}

// List returns up to limit previously exported documents.
func (e *Exporter) List(ctx context.Context, limit int) ([]filestore.ObjectInfo, error) {
	return e.store.ListObjects(ctx, e.bucket, filestore.ListOptions{Prefix: e.prefix, Limit: limit})
}

// Get returns the object stored at key with a fresh download URL.
// Keys outside the export prefix are reported as not found.
func (e *Exporter) Get(ctx context.Context, key string) (*Result, error) {
	if key == "" || !strings.HasPrefix(key, e.prefix) {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("export %q not found", key))
	}
	info, err := e.store.StatObject(ctx, e.bucket, key)
	if err != nil {
		return nil, err
	}
	url, err := e.store.PresignGetURL(ctx, e.bucket, key, e.ttl)
	if err != nil {
		return nil, err
	}
	return &Result{Object: *info, URL: url}, nil
}

func (e *Exporter) objectKey(name string, now time.Time) string {
	return e.prefix + now.Format("2006/01/02/") + slug(name) + "-" + uuid.NewString() + ".json"
}

// slug keeps object keys to a safe character set.
func slug(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "query"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
