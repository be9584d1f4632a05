package files

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStorage_SaveAndConflict(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStorage(dir, "https://cdn.clinica.test/files/")

	url, err := store.Save(context.Background(), "precos", "tabela.pdf", strings.NewReader("%PDF"), 4)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.clinica.test/files/precos/tabela.pdf", url)

	data, err := os.ReadFile(filepath.Join(dir, "precos", "tabela.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))

	_, err = store.Save(context.Background(), "precos", "tabela.pdf", strings.NewReader("new"), 3)
	assert.ErrorIs(t, err, ErrFileExists)

	data, err = os.ReadFile(filepath.Join(dir, "precos", "tabela.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data), "existing file must not be overwritten")
}

func TestDiskStorage_RequiresBaseURL(t *testing.T) {
	_, err := NewDiskStorage(t.TempDir(), "").Save(context.Background(), "a", "b.pdf", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrBaseURLMissing)
}

func TestDiskStorage_DeleteRemovesEmptyCategory(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStorage(dir, "https://cdn.test")
	ctx := context.Background()

	_, err := store.Save(ctx, "videos", "a.mp4", strings.NewReader("a"), 1)
	require.NoError(t, err)
	_, err = store.Save(ctx, "videos", "b.mp4", strings.NewReader("b"), 1)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "videos", "a.mp4"))
	assert.DirExists(t, filepath.Join(dir, "videos"))

	require.NoError(t, store.Delete(ctx, "videos", "b.mp4"))
	assert.NoDirExists(t, filepath.Join(dir, "videos"))

	// Missing files are fine.
	assert.NoError(t, store.Delete(ctx, "videos", "b.mp4"))
}

func TestDiskStorage_StaysInsideBaseDir(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "public", "files")
	require.NoError(t, os.MkdirAll(base, 0o755))
	store := NewDiskStorage(base, "https://cdn.test")
	ctx := context.Background()

	_, err := store.Save(ctx, NormalizeCategory("../../escaped"), "a.pdf", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrInvalidCategory)
	assert.NoDirExists(t, filepath.Join(root, "escaped"))

	_, err = store.Save(ctx, ".", "a.pdf", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrInvalidCategory)
	assert.NoFileExists(t, filepath.Join(base, "a.pdf"))

	// "." would otherwise resolve to the base dir and remove it once empty.
	assert.ErrorIs(t, store.Delete(ctx, ".", "a.pdf"), ErrInvalidCategory)
	assert.DirExists(t, base)
	assert.ErrorIs(t, store.Delete(ctx, "..", "a.pdf"), ErrInvalidCategory)
	assert.DirExists(t, filepath.Join(root, "public"))
}

type fakeS3 struct {
	objects map[string][]byte
	headErr error
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[*in.Key]; ok {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, &s3types.NotFound{}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, _ := io.ReadAll(in.Body)
	f.objects[*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage_SaveUsesCategoryKey(t *testing.T) {
	api := newFakeS3()
	store := NewS3Storage(api, "clinic-media", "")

	url, err := store.Save(context.Background(), "precos", "tabela.pdf", bytes.NewReader([]byte("pdf")), 3)
	require.NoError(t, err)
	assert.Equal(t, "https://clinic-media.s3.amazonaws.com/precos/tabela.pdf", url)
	assert.Equal(t, []byte("pdf"), api.objects["precos/tabela.pdf"])

	_, err = store.Save(context.Background(), "precos", "tabela.pdf", bytes.NewReader([]byte("again")), 5)
	assert.ErrorIs(t, err, ErrFileExists)

	require.NoError(t, store.Delete(context.Background(), "precos", "tabela.pdf"))
	assert.Empty(t, api.objects)
}

func TestS3Storage_HeadFailure(t *testing.T) {
	api := newFakeS3()
	api.headErr = errors.New("access denied")

	_, err := NewS3Storage(api, "b", "https://media.test").Save(context.Background(), "c", "d.png", bytes.NewReader(nil), 0)
	assert.ErrorContains(t, err, "access denied")
	assert.NotErrorIs(t, err, ErrFileExists)
}

func TestS3Storage_RejectsInvalidCategory(t *testing.T) {
	api := newFakeS3()
	_, err := NewS3Storage(api, "clinic-media", "").Save(context.Background(), "../x", "a.pdf", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrInvalidCategory)
	assert.Empty(t, api.objects)
}
