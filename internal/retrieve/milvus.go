package retrieve

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/ppiankov/continuum/internal/model"
)

const (
	milvusIDField     = "id"
	milvusVectorField = "vector"
	milvusPhaseField  = "phase"
)

var collectionUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// milvusHit is one search result
type milvusHit struct {
	ID    int64
	Score float32
}

// collectionStore is the set of Milvus operations the index needs
type collectionStore interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, dim int) error
	DropCollection(ctx context.Context, name string) error
	Insert(ctx context.Context, name string, ids []int64, phases []string, dim int, vectors [][]float32) error
	Load(ctx context.Context, name string) error
	Search(ctx context.Context, name string, topK int, vector []float32, filter string) ([]milvusHit, error)
	Release(ctx context.Context, name string) error
	Close(ctx context.Context) error
}

// milvusStore implements collectionStore on the Milvus client
type milvusStore struct {
	client *milvusclient.Client
}

func (s *milvusStore) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
}

func (s *milvusStore) CreateCollection(ctx context.Context, name string, dim int) error {
	schema := entity.NewSchema().WithName(name).
		WithField(entity.NewField().WithName(milvusIDField).WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(milvusPhaseField).WithDataType(entity.FieldTypeVarChar).WithMaxLength(16)).
		WithField(entity.NewField().WithName(milvusVectorField).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))

	idx := index.NewAutoIndex(index.MetricType(entity.COSINE))
	return s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema).WithIndexOptions(
		milvusclient.NewCreateIndexOption(name, milvusVectorField, idx),
	))
}

func (s *milvusStore) DropCollection(ctx context.Context, name string) error {
	return s.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(name))
}

func (s *milvusStore) Insert(ctx context.Context, name string, ids []int64, phases []string, dim int, vectors [][]float32) error {
	_, err := s.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(name).
		WithInt64Column(milvusIDField, ids).
		WithVarcharColumn(milvusPhaseField, phases).
		WithFloatVectorColumn(milvusVectorField, dim, vectors))
	return err
}

func (s *milvusStore) Load(ctx context.Context, name string) error {
	task, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return err
	}
	return task.Await(ctx)
}

func (s *milvusStore) Search(ctx context.Context, name string, topK int, vector []float32, filter string) ([]milvusHit, error) {
	opt := milvusclient.NewSearchOption(name, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(milvusVectorField).
		WithConsistencyLevel(entity.ClStrong)
	if filter != "" {
		opt = opt.WithFilter(filter)
	}

	results, err := s.client.Search(ctx, opt)
	if err != nil {
		return nil, err
	}

	var hits []milvusHit
	for _, r := range results {
		for i := 0; i < r.IDs.Len(); i++ {
			id, err := r.IDs.GetAsInt64(i)
			if err != nil {
				return nil, fmt.Errorf("read result id: %w", err)
			}
			hits = append(hits, milvusHit{ID: id, Score: r.Scores[i]})
		}
	}
	return hits, nil
}

func (s *milvusStore) Release(ctx context.Context, name string) error {
	return s.client.ReleaseCollection(ctx, milvusclient.NewReleaseCollectionOption(name))
}

func (s *milvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// MilvusIndex keeps one story's chunk vectors in a dedicated Milvus collection.
// The collection is dropped on Close.
type MilvusIndex struct {
	store      collectionStore
	embedder   Embedder
	dim        int
	collection string

	chunks map[int64]Chunk
}

// NewMilvusIndex connects to Milvus at address
func NewMilvusIndex(ctx context.Context, address string, embedder Embedder, dim int, storyID string) (*MilvusIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("milvus index: embedding dim must be positive")
	}

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: address,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus %s: %w", address, err)
	}

	return newMilvusIndex(&milvusStore{client: client}, embedder, dim, storyID), nil
}

func newMilvusIndex(store collectionStore, embedder Embedder, dim int, storyID string) *MilvusIndex {
	return &MilvusIndex{
		store:      store,
		embedder:   embedder,
		dim:        dim,
		collection: CollectionName(storyID),
		chunks:     make(map[int64]Chunk),
	}
}

// CollectionName derives a valid, run-unique collection name for a story
func CollectionName(storyID string) string {
	id := collectionUnsafe.ReplaceAllString(storyID, "_")
	if len(id) > 64 {
		id = id[:64]
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "continuum_" + id + "_" + suffix
}

// Build creates the collection, inserts all chunk vectors and loads it.
// A collection left behind by an earlier failed attempt is dropped first,
// so Build can be retried.
func (m *MilvusIndex) Build(ctx context.Context, chunks []Chunk) error {
	exists, err := m.store.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", m.collection, err)
	}
	if exists {
		if err := m.store.DropCollection(ctx, m.collection); err != nil {
			return fmt.Errorf("drop stale collection %s: %w", m.collection, err)
		}
	}
	m.chunks = make(map[int64]Chunk, len(chunks))

	if err := m.store.CreateCollection(ctx, m.collection, m.dim); err != nil {
		return fmt.Errorf("create collection %s: %w", m.collection, err)
	}

	if len(chunks) > 0 {
		vectors, err := embedChunks(ctx, m.embedder, chunks)
		if err != nil {
			return err
		}

		ids := make([]int64, len(chunks))
		phases := make([]string, len(chunks))
		for i, c := range chunks {
			ids[i] = int64(c.Index)
			phases[i] = string(c.Phase)
		}

		if err := m.store.Insert(ctx, m.collection, ids, phases, m.dim, vectors); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
	}

	if err := m.store.Load(ctx, m.collection); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}

	for _, c := range chunks {
		m.chunks[int64(c.Index)] = c
	}
	return nil
}

// Retrieve runs an ANN search, filtered by phase when requested
func (m *MilvusIndex) Retrieve(ctx context.Context, q Query) ([]model.Passage, error) {
	n := candidateCount(q)
	if len(m.chunks) == 0 || n == 0 {
		return []model.Passage{}, nil
	}

	qv, err := m.embedder.Embed(ctx, []string{q.Text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qv) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(qv))
	}

	filter := ""
	if q.Phase != model.PhaseAny {
		filter = fmt.Sprintf("%s == %q", milvusPhaseField, string(q.Phase))
	}

	results, err := m.store.Search(ctx, m.collection, n, qv[0], filter)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}

	var hits []scored
	for _, r := range results {
		c, ok := m.chunks[r.ID]
		if !ok {
			continue
		}
		hits = append(hits, scored{chunk: c, score: float64(r.Score)})
	}
	return finish(q, hits), nil
}

// Close drops the story collection and closes the connection
func (m *MilvusIndex) Close(ctx context.Context) error {
	_ = m.store.Release(ctx, m.collection)
	dropErr := m.store.DropCollection(ctx, m.collection)
	closeErr := m.store.Close(ctx)
	if dropErr != nil {
		return fmt.Errorf("drop collection %s: %w", m.collection, dropErr)
	}
	return closeErr
}
