package cookiejar

import (
	"encoding/json"
	"errors"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCacheDir = "/var/cache/rurl"

var testOrigin = Origin{Scheme: "https", Host: "example.com"}

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	return NewStore(fsys, testCacheDir, nil), fsys
}

func TestOriginKey(t *testing.T) {
	// md5("httpsexample.com")
	assert.Equal(t, "b5e7a69dbbe75405365651aa502cb80f", testOrigin.Key())
	assert.NotEqual(t, testOrigin.Key(), Origin{Scheme: "http", Host: "example.com"}.Key())
	assert.Len(t, testOrigin.Key(), 32)
}

func TestOriginOfDropsPort(t *testing.T) {
	u, err := url.Parse("https://example.com:8443/a?b=c")
	require.NoError(t, err)
	assert.Equal(t, testOrigin, OriginOf(u))
	assert.Equal(t, "https://example.com", OriginOf(u).String())
}

func TestStorePath(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Equal(t, filepath.Join(testCacheDir, testOrigin.Key()), store.Path(testOrigin))
	assert.Equal(t, testCacheDir, store.Dir())
}

func TestStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	jar := NewJar()
	first, err := Parse("Set-Cookie: sid=abc; path=/app; expires=Wed, 21 Oct 2037 07:28:00 GMT; Domain=example.com; Secure", "/")
	require.NoError(t, err)
	second, err := Parse("Set-Cookie: theme=dark", "/app/settings")
	require.NoError(t, err)
	jar.Set(first)
	jar.Set(second)

	require.NoError(t, store.Save(testOrigin, jar))

	loaded := store.Load(testOrigin)
	require.Equal(t, 2, loaded.Len())
	assert.Equal(t, jar.Cookies(), loaded.Cookies())

	got, ok := loaded.Get("sid")
	require.True(t, ok)
	assert.Equal(t, first, got)
}

func TestStoreFileFormat(t *testing.T) {
	store, fsys := newTestStore(t)

	jar := NewJar()
	jar.Set(Cookie{Name: "a", Value: "1", Raw: "a=1", Path: "/", Attributes: map[string]string{"domain": "example.com"}})
	require.NoError(t, store.Save(testOrigin, jar))

	data, err := afero.ReadFile(fsys, store.Path(testOrigin))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"key":"a","value":"1","kv":"a=1","path":"/","domain":"example.com"}}`, string(data))

	var generic map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, "a=1", generic["a"]["kv"])
}

func TestStoreSaveOverwrites(t *testing.T) {
	store, _ := newTestStore(t)

	jar := NewJar()
	jar.Set(Cookie{Name: "a", Value: "1", Raw: "a=1", Path: "/"})
	jar.Set(Cookie{Name: "b", Value: "2", Raw: "b=2", Path: "/"})
	require.NoError(t, store.Save(testOrigin, jar))

	smaller := NewJar()
	smaller.Set(Cookie{Name: "c", Value: "3", Raw: "c=3", Path: "/"})
	require.NoError(t, store.Save(testOrigin, smaller))

	loaded := store.Load(testOrigin)
	assert.Equal(t, 1, loaded.Len())
	_, ok := loaded.Get("a")
	assert.False(t, ok)
}

func TestStoreLoadFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{name: "missing file"},
		{name: "empty file", content: ptr("")},
		{name: "whitespace file", content: ptr("  \n")},
		{name: "corrupt json", content: ptr("{not json")},
		{name: "wrong shape", content: ptr(`{"a":"plain string"}`)},
		{name: "empty array", content: ptr("[]")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, fsys := newTestStore(t)
			if tt.content != nil {
				require.NoError(t, fsys.MkdirAll(testCacheDir, 0o755))
				require.NoError(t, afero.WriteFile(fsys, store.Path(testOrigin), []byte(*tt.content), 0o644))
			}

			jar := store.Load(testOrigin)
			require.NotNil(t, jar)
			assert.Zero(t, jar.Len())
		})
	}
}

func TestStoreLoadLegacyValues(t *testing.T) {
	store, fsys := newTestStore(t)
	require.NoError(t, fsys.MkdirAll(testCacheDir, 0o755))
	content := `{"sid":{"key":"sid","value":"1","kv":"sid=1","path":"\/","HttpOnly":null,"max-age":3600}}`
	require.NoError(t, afero.WriteFile(fsys, store.Path(testOrigin), []byte(content), 0o644))

	jar := store.Load(testOrigin)
	c, ok := jar.Get("sid")
	require.True(t, ok)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, map[string]string{"HttpOnly": "", "max-age": "3600"}, c.Attributes)
}

func TestStoreSaveUnwritable(t *testing.T) {
	store := NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), testCacheDir, nil)

	jar := NewJar()
	jar.Set(Cookie{Name: "a", Value: "1", Raw: "a=1", Path: "/"})
	err := store.Save(testOrigin, jar)
	require.Error(t, err)

	var cacheErr *CacheError
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, CodeCreateFile, cacheErr.Code())
	assert.Equal(t, "mkdir", cacheErr.Op)
	assert.Contains(t, err.Error(), testCacheDir)
}

func ptr(s string) *string { return &s }
