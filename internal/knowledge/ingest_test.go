package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/clinic-admin/pkg/logging"
)

type memStore struct {
	rows      map[string]bool
	insertErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]bool{}, insertErr: map[string]error{}}
}

func (m *memStore) List(context.Context, string, int, int) (*Page, error) { return &Page{}, nil }

func (m *memStore) Exists(_ context.Context, category, content string) (bool, error) {
	return m.rows[category+"|"+content], nil
}

func (m *memStore) Insert(_ context.Context, content, category string, _ []float32) error {
	if err := m.insertErr[content]; err != nil {
		return err
	}
	m.rows[category+"|"+content] = true
	return nil
}

func (m *memStore) DeleteIDs(context.Context, []string) (int64, error) { return 0, nil }

func (m *memStore) DeleteItem(context.Context, string) (int64, error) { return 0, nil }

func (m *memStore) DeleteCategory(context.Context, string) (int64, error) { return 0, nil }

func (m *memStore) Categories(context.Context) ([]CategoryCount, error) { return nil, nil }

type fakeEmbedder struct {
	calls int
	fail  map[string]bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.fail[text] {
		return nil, errors.New("rate limited")
	}
	return []float32{0.1, 0.2}, nil
}

func TestIngest_DeduplicatesPerCategory(t *testing.T) {
	store := newMemStore()
	embedder := &fakeEmbedder{}
	ingester := NewIngester(store, embedder, logging.Default())

	first := ingester.Ingest(context.Background(), []string{"a", "b", "a"}, "faq")
	assert.Equal(t, IngestResult{Generated: 3, Inserted: 2, Duplicates: 1}, first)

	second := ingester.Ingest(context.Background(), []string{"a", "b"}, "faq")
	assert.Equal(t, IngestResult{Generated: 2, Duplicates: 2}, second)

	other := ingester.Ingest(context.Background(), []string{"a"}, "precos")
	assert.Equal(t, IngestResult{Generated: 1, Inserted: 1}, other)

	assert.Equal(t, 3, embedder.calls)
}

func TestIngest_CountsErrorsAndContinues(t *testing.T) {
	store := newMemStore()
	store.insertErr["c"] = errors.New("dimension mismatch")
	embedder := &fakeEmbedder{fail: map[string]bool{"b": true}}

	res := NewIngester(store, embedder, logging.Default()).
		Ingest(context.Background(), []string{"a", "b", "c", "d"}, "faq")

	assert.Equal(t, IngestResult{Generated: 4, Inserted: 2, Errors: 2}, res)
}
