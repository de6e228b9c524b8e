package mail

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContent(t *testing.T) {
	f := FromContent("hello", "", "")

	content, ok := f.Content()
	assert.True(t, ok)
	assert.Equal(t, "hello", content)

	_, ok = f.Path()
	assert.False(t, ok)
	_, ok = f.Name()
	assert.False(t, ok)
	_, ok = f.ContentType()
	assert.False(t, ok)

	id := f.ID()
	assert.Len(t, id, 36)
	assert.True(t, strings.HasSuffix(id, "@app"))
	assert.Regexp(t, `^[0-9a-f]{32}@app$`, id)
}

func TestFile_NameAndContentType(t *testing.T) {
	f := FromContent("x", "report.csv", "text/csv")

	name, ok := f.Name()
	assert.True(t, ok)
	assert.Equal(t, "report.csv", name)

	contentType, ok := f.ContentType()
	assert.True(t, ok)
	assert.Equal(t, "text/csv", contentType)
}

func TestFile_IDIsStable(t *testing.T) {
	f := FromContent("hello", "", "")
	first := f.ID()
	assert.Equal(t, first, f.ID())
	assert.NotEqual(t, first, FromContent("hello", "", "").ID())
}

func TestFile_IDHasNoFixedDigits(t *testing.T) {
	// UUID v4 would pin digit 12 to "4" and digit 16 to one of "89ab"
	versions := map[byte]bool{}
	variants := map[byte]bool{}
	for range 64 {
		id := FromContent("x", "", "").ID()
		versions[id[12]] = true
		variants[id[16]] = true
	}
	assert.Greater(t, len(versions), 1)
	assert.Greater(t, len(variants), 4)
}

func TestFile_IDConcurrent(t *testing.T) {
	f := FromContent("hello", "", "")

	ids := make([]string, 16)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = f.ID()
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestFile_CID(t *testing.T) {
	f := FromContent("hello", "", "")
	assert.Equal(t, "cid:"+f.ID(), f.CID())
}

func TestFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("from disk"), 0o600))

	f, err := FromPath(path, "renamed.txt", "text/plain")
	require.NoError(t, err)

	gotPath, ok := f.Path()
	assert.True(t, ok)
	assert.Equal(t, path, gotPath)
	_, ok = f.Content()
	assert.False(t, ok)

	data, err := f.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "from disk", string(data))
}

func TestFromPath_Missing(t *testing.T) {
	_, err := FromPath(filepath.Join(t.TempDir(), "missing.txt"), "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestFromPath_Directory(t *testing.T) {
	_, err := FromPath(t.TempDir(), "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestFile_BytesRemovedAfterCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	f, err := FromPath(path, "", "")
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	_, err = f.Bytes()
	assert.Error(t, err)
}
