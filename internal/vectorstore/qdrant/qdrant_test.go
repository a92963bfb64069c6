package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askpdf/internal/domain"
)

type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]int
	points      map[string]int
	deleted     []string
	failUpsert  bool
	lastLimit   int
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/collections/"), "/")
	name := parts[0]
	switch {
	case r.Method == http.MethodPut && len(parts) == 1:
		var body struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Vectors.Distance != "Cosine" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.collections[name] = body.Vectors.Size
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && parts[1] == "points":
		if f.failUpsert {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":{"error":"disk full"}}`))
			return
		}
		var body struct {
			Points []json.RawMessage `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points[name] += len(body.Points)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodPost && parts[1] == "points":
		var body struct {
			Limit int `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lastLimit = body.Limit
		// two equal scores returned in reverse passage order
		_, _ = w.Write([]byte(`{"result":[
			{"id":2,"score":0.5,"payload":{"index":2,"text":"c"}},
			{"id":0,"score":0.9,"payload":{"index":0,"text":"a"}},
			{"id":1,"score":0.5,"payload":{"index":1,"text":"b"}}
		]}`))
	case r.Method == http.MethodDelete:
		delete(f.collections, name)
		f.deleted = append(f.deleted, name)
		_, _ = w.Write([]byte(`{"result":true}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFake(t *testing.T) (*fakeQdrant, *Backend) {
	f := &fakeQdrant{collections: map[string]int{}, points: map[string]int{}}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, NewBackend(Config{URL: server.URL, CollectionPrefix: "test", UpsertBatch: 2}, nil)
}

func threePassages() ([]domain.Passage, [][]float32) {
	return []domain.Passage{{Index: 0, Text: "a"}, {Index: 1, Text: "b"}, {Index: 2, Text: "c"}},
		[][]float32{{1, 0}, {0, 1}, {0.6, 0.8}}
}

func TestBuildSearchClose(t *testing.T) {
	f, b := newFake(t)
	ps, vs := threePassages()

	idx, err := b.Build(context.Background(), ps, vs)
	require.NoError(t, err)
	q := idx.(*Index)
	assert.True(t, strings.HasPrefix(q.Collection(), "test-"))
	assert.Equal(t, 2, f.collections[q.Collection()])
	assert.Equal(t, 3, f.points[q.Collection()])

	res, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{res[0].Passage.Index, res[1].Passage.Index, res[2].Passage.Index})

	require.NoError(t, idx.Close(context.Background()))
	assert.Equal(t, []string{q.Collection()}, f.deleted)
	assert.Empty(t, f.collections)
}

func TestSearchBreaksTiesAtCutByPassageOrder(t *testing.T) {
	f, b := newFake(t)
	ps, vs := threePassages()
	idx, err := b.Build(context.Background(), ps, vs)
	require.NoError(t, err)

	res, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, f.lastLimit)
	require.Len(t, res, 2)
	assert.Equal(t, 0, res[0].Passage.Index)
	assert.Equal(t, 1, res[1].Passage.Index, "equal scores keep the earlier passage")
}

func TestEachBuildUsesNewCollection(t *testing.T) {
	_, b := newFake(t)
	ps, vs := threePassages()
	a, err := b.Build(context.Background(), ps, vs)
	require.NoError(t, err)
	c, err := b.Build(context.Background(), ps, vs)
	require.NoError(t, err)
	assert.NotEqual(t, a.(*Index).Collection(), c.(*Index).Collection())
}

func TestBuildDropsCollectionOnUpsertFailure(t *testing.T) {
	f, b := newFake(t)
	f.failUpsert = true
	ps, vs := threePassages()

	_, err := b.Build(context.Background(), ps, vs)
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, f.deleted, 1)
	assert.Empty(t, f.collections)
}

func TestEmptyIndexNeedsNoServer(t *testing.T) {
	b := NewBackend(Config{URL: "http://127.0.0.1:1"}, nil)
	idx, err := b.Build(context.Background(), nil, nil)
	require.NoError(t, err)
	res, err := idx.Search(context.Background(), []float32{1}, 4)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.NoError(t, idx.Close(context.Background()))
}
