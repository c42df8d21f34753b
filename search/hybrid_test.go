package search

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspol/policyrag/schema"
	"github.com/inspol/policyrag/store"
)

type fakeStore struct {
	vec    []schema.AnnotatedChunk
	fts    []schema.AnnotatedChunk
	ftsErr error

	gotThreshold float64
	gotClause    string
	gotTsquery   string
}

func (f *fakeStore) SearchVectors(_ context.Context, _ []float32, threshold float64, _ int, filters store.Filters) ([]schema.AnnotatedChunk, error) {
	f.gotThreshold = threshold
	f.gotClause = filters.ClauseNumber
	return f.vec, nil
}

func (f *fakeStore) FTSSearch(_ context.Context, tsquery string, _ int, _ store.Filters) ([]schema.AnnotatedChunk, error) {
	f.gotTsquery = tsquery
	if f.ftsErr != nil {
		return nil, f.ftsErr
	}
	return f.fts, nil
}

func (f *fakeStore) GetAdjacent(context.Context, int64, schema.ExpandDirection, int) (store.Adjacent, error) {
	return store.Adjacent{}, nil
}

func (f *fakeStore) GetByIDs(context.Context, []int64) ([]schema.AnnotatedChunk, error) {
	return nil, nil
}

func (f *fakeStore) ClauseNumbersExist(context.Context, []string) (map[string]bool, error) {
	return nil, nil
}

type fakeEmbedder struct{ zero bool }

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.zero {
		return make([]float32, 3), nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

type fakeExtractor struct{ terms []string }

func (f *fakeExtractor) Extract(string) []string { return f.terms }

func annotated(id int64, content string, tokens int) schema.AnnotatedChunk {
	return schema.AnnotatedChunk{
		Chunk: schema.Chunk{
			ChunkID:    id,
			DocumentID: 1,
			ChunkIndex: int(id),
			Content:    content,
			ChunkType:  schema.ChunkTypeText,
			TokenCount: tokens,
		},
		Rank: 0.9,
	}
}

func newHybrid(st *fakeStore, terms []string) *HybridSearcher {
	return &HybridSearcher{
		Vector:           &VectorSearcher{Embed: &fakeEmbedder{}, Store: st},
		Keyword:          &KeywordSearcher{Extractor: &fakeExtractor{terms: terms}, Store: st},
		Counter:          runeCounter{},
		Sink:             store.NopLogSink{},
		MaxContextTokens: 20000,
	}
}

func TestHybridSearch_FusesAndDeduplicates(t *testing.T) {
	st := &fakeStore{
		vec: []schema.AnnotatedChunk{
			annotated(1, "벡터 전용", 10),
			annotated(2, "양쪽 히트", 10),
		},
		fts: []schema.AnnotatedChunk{
			annotated(2, "양쪽 히트", 10),
			annotated(3, "키워드 전용", 10),
		},
	}

	h := newHybrid(st, []string{"보험"})
	results, total := h.Search(context.Background(), "보험 질문", Options{Threshold: 0.7, Limit: 2})

	require.Len(t, results, 2)
	require.Equal(t, 20, total, "two chunks of 10 tokens each")

	// Invariant: no duplicate chunk ids, similarity descending.
	seen := map[int64]bool{}
	for i, r := range results {
		require.False(t, seen[r.ChunkID], "duplicate chunk %d", r.ChunkID)
		seen[r.ChunkID] = true
		if i > 0 {
			require.LessOrEqual(t, r.Similarity, results[i-1].Similarity)
		}
	}

	// Chunk 2 appears in both lists; its similarity is the summed RRF score.
	require.Equal(t, int64(2), results[0].ChunkID)
	want := 1.0/62 + 1.0/61
	require.InDelta(t, want, results[0].Similarity, 1e-12)
}

func TestHybridSearch_BothSidesEmpty(t *testing.T) {
	st := &fakeStore{}
	h := newHybrid(st, []string{"보험"})
	results, total := h.Search(context.Background(), "질문", Options{Threshold: 0.7, Limit: 5})
	require.Empty(t, results)
	require.Zero(t, total)
}

func TestHybridSearch_KeywordFailureDegradesToVector(t *testing.T) {
	st := &fakeStore{
		vec:    []schema.AnnotatedChunk{annotated(1, "벡터", 5)},
		ftsErr: fmt.Errorf("fts down"),
	}
	h := newHybrid(st, []string{"보험"})
	results, _ := h.Search(context.Background(), "질문", Options{Threshold: 0.7, Limit: 5})
	require.Len(t, results, 1)
	require.Equal(t, int64(1), results[0].ChunkID)
}

func TestHybridSearch_ClauseFilterPropagates(t *testing.T) {
	st := &fakeStore{vec: []schema.AnnotatedChunk{annotated(1, "제15조 내용", 5)}}
	h := newHybrid(st, []string{"제15조"})
	h.Search(context.Background(), "제15조", Options{Threshold: 0.3, Limit: 5, ClauseNumber: "제15조"})

	require.Equal(t, "제15조", st.gotClause)
	require.InDelta(t, 0.3, st.gotThreshold, 1e-9)
}

func TestKeywordSearch_BuildsConjunctiveTsquery(t *testing.T) {
	st := &fakeStore{fts: []schema.AnnotatedChunk{annotated(1, "호스피스 신청", 5)}}
	ks := &KeywordSearcher{Extractor: &fakeExtractor{terms: []string{"호스피스", "신청"}}, Store: st}

	out := ks.Search(context.Background(), "호스피스의 신청은?", Options{Limit: 5})
	require.Len(t, out, 1)
	require.Equal(t, "호스피스 & 신청", st.gotTsquery)
}

func TestVectorSearch_ZeroEmbeddingReturnsEmpty(t *testing.T) {
	st := &fakeStore{vec: []schema.AnnotatedChunk{annotated(1, "내용", 5)}}
	vs := &VectorSearcher{Embed: &fakeEmbedder{zero: true}, Store: st}
	out := vs.Search(context.Background(), "질문", Options{Threshold: 0.7, Limit: 5})
	require.Empty(t, out)
	// Threshold untouched because the store was never queried.
	require.True(t, math.Abs(st.gotThreshold) < 1e-12)
}
