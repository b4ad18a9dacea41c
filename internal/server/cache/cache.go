// Package cache keeps rendered GET responses for a fixed time so repeated
// reads skip the database.
package cache

import (
	"bytes"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
)

const (
	Hit  = "HIT"
	Miss = "MISS"
)

type entry struct {
	status      int
	contentType string
	body        []byte
}

// ResponseCache stores successful GET responses keyed on path and query.
// generation moves on every Flush; a response rendered across a flush is
// not stored.
type ResponseCache struct {
	store *gocache.Cache

	mu         sync.Mutex
	generation uint64
}

// New returns a cache whose entries expire after ttl.
func New(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: gocache.New(ttl, 2*ttl)}
}

// Flush drops every stored response.
func (c *ResponseCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.store.Flush()
}

func (c *ResponseCache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// storeIf keeps e unless a flush happened since generation started.
func (c *ResponseCache) storeIf(started uint64, key string, e entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != started {
		return false
	}
	c.store.SetDefault(key, e)
	return true
}

// Len reports the number of stored responses, expired ones included until
// the janitor runs.
func (c *ResponseCache) Len() int {
	return c.store.ItemCount()
}

// Key identifies a request. Query parameters are sorted, so ?a=1&b=2 and
// ?b=2&a=1 share an entry; a trailing slash is ignored.
func Key(r *http.Request) string {
	path := r.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	key := r.Method + " " + path
	if q := r.URL.Query(); len(q) > 0 {
		key += "?" + q.Encode()
	}
	return key
}

// Middleware answers GET requests from the cache when it can, and stores
// 200 responses otherwise. Other methods pass through untouched.
func (c *ResponseCache) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet {
			ctx.Next()
			return
		}

		key := Key(ctx.Request)

		if v, ok := c.store.Get(key); ok {
			e := v.(entry)
			ctx.Header(common.CacheHeaderName, Hit)
			ctx.Data(e.status, e.contentType, e.body)
			ctx.Abort()
			return
		}

		ctx.Header(common.CacheHeaderName, Miss)

		started := c.currentGeneration()

		rec := &recorder{ResponseWriter: ctx.Writer}
		ctx.Writer = rec

		ctx.Next()

		if rec.Status() != http.StatusOK {
			return
		}

		c.storeIf(started, key, entry{
			status:      rec.Status(),
			contentType: rec.Header().Get("Content-Type"),
			body:        bytes.Clone(rec.body.Bytes()),
		})
	}
}

// InvalidateOnWrite flushes the cache after every successful non-GET
// request, so reads never return a record a write changed or removed.
func (c *ResponseCache) InvalidateOnWrite() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		switch ctx.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		if ctx.Writer.Status() < http.StatusBadRequest {
			c.Flush()
		}
	}
}

type recorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
