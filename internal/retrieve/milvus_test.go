package retrieve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/continuum/internal/model"
)

// fakeCollections mimics Milvus collection semantics in memory
type fakeCollections struct {
	collections map[string]map[int64][]float32
	phases      map[int64]string
	insertErrs  []error
	creates     int
	drops       int
	lastFilter  string
	closed      bool
}

func newFakeCollections() *fakeCollections {
	return &fakeCollections{
		collections: make(map[string]map[int64][]float32),
		phases:      make(map[int64]string),
	}
}

func (f *fakeCollections) HasCollection(ctx context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeCollections) CreateCollection(ctx context.Context, name string, dim int) error {
	if _, ok := f.collections[name]; ok {
		return fmt.Errorf("collection %s already exists", name)
	}
	f.creates++
	f.collections[name] = make(map[int64][]float32)
	return nil
}

func (f *fakeCollections) DropCollection(ctx context.Context, name string) error {
	if _, ok := f.collections[name]; !ok {
		return fmt.Errorf("collection %s not found", name)
	}
	f.drops++
	delete(f.collections, name)
	return nil
}

func (f *fakeCollections) Insert(ctx context.Context, name string, ids []int64, phases []string, dim int, vectors [][]float32) error {
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	for i, id := range ids {
		f.collections[name][id] = vectors[i]
		f.phases[id] = phases[i]
	}
	return nil
}

func (f *fakeCollections) Load(ctx context.Context, name string) error { return nil }

func (f *fakeCollections) Search(ctx context.Context, name string, topK int, vector []float32, filter string) ([]milvusHit, error) {
	f.lastFilter = filter
	var hits []milvusHit
	for id, v := range f.collections[name] {
		if filter != "" && filter != fmt.Sprintf("phase == %q", f.phases[id]) {
			continue
		}
		hits = append(hits, milvusHit{ID: id, Score: float32(cosine(vector, v))})
	}
	return hits, nil
}

func (f *fakeCollections) Release(ctx context.Context, name string) error { return nil }

func (f *fakeCollections) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func TestMilvusIndex_BuildCanBeRetried(t *testing.T) {
	ctx := context.Background()
	store := newFakeCollections()
	store.insertErrs = []error{errors.New("rpc error: code = Unavailable")}
	idx := newMilvusIndex(store, &bagEmbedder{}, len(bagVocab), "story-1")

	require.Error(t, idx.Build(ctx, storyChunks()))
	assert.Empty(t, idx.chunks)

	require.NoError(t, idx.Build(ctx, storyChunks()))
	assert.Equal(t, 2, store.creates)
	assert.Equal(t, 1, store.drops, "the half-built collection is dropped before recreating")
	assert.Len(t, store.collections[idx.collection], len(storyChunks()))
}

func TestMilvusIndex_RetrieveFiltersByPhase(t *testing.T) {
	ctx := context.Background()
	store := newFakeCollections()
	idx := newMilvusIndex(store, &bagEmbedder{}, len(bagVocab), "story-2")
	require.NoError(t, idx.Build(ctx, storyChunks()))

	got, err := idx.Retrieve(ctx, Query{Text: "mara lighthouse", TopK: 2, Phase: model.PhaseLate})
	require.NoError(t, err)
	assert.Equal(t, `phase == "LATE"`, store.lastFilter)
	require.NotEmpty(t, got)
	assert.Equal(t, "chunk:2", got[0].Ref)
	for _, p := range got {
		assert.Equal(t, model.PhaseLate, p.Phase)
	}

	_, err = idx.Retrieve(ctx, Query{Text: "storm", TopK: 1})
	require.NoError(t, err)
	assert.Empty(t, store.lastFilter)
}

func TestMilvusIndex_CloseDropsCollection(t *testing.T) {
	ctx := context.Background()
	store := newFakeCollections()
	idx := newMilvusIndex(store, &bagEmbedder{}, len(bagVocab), "story-3")
	require.NoError(t, idx.Build(ctx, nil))

	require.NoError(t, idx.Close(ctx))
	assert.NotContains(t, store.collections, idx.collection)
	assert.True(t, store.closed)
}
