package globs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/theme/source/scss/**/*.scss", "/theme/source/scss/app.scss", true},
		{"/theme/source/scss/**/*.scss", "/theme/source/scss/components/_button.scss", true},
		{"/theme/source/scss/**/*.scss", "/theme/source/scss/a/b/c.scss", true},
		{"/theme/source/scss/**/*.scss", "/theme/source/scss/app.css", false},
		{"/theme/source/scss/**/*.scss", "/theme/source/js/app.scss", false},
		{"/theme/layouts/**/*", "/theme/layouts/index.html", true},
		{"/theme/layouts/**/*", "/theme/layouts/_default/single.html", true},
		{"/theme/source/js/*.js", "/theme/source/js/vendor/x.js", false},
		{"/theme/theme.toml", "/theme/theme.toml", true},
		{"/theme/theme.toml", "/theme/config.toml", false},
		{"/a/**/b/**/c", "/a/b/c", true},
		{"/a/**/b/**/c", "/a/x/b/c", true},
		{"/a/**/b/**/c", "/a/b/y/c", true},
		{"/a/**/b/**/c", "/a/x/b/y/c", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.path, func(t *testing.T) {
			p, err := Compile(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.path))
		})
	}
}

func TestRoot(t *testing.T) {
	assert.Equal(t, filepath.FromSlash("/theme/source/scss"), MustCompile("/theme/source/scss/**/*.scss").Root())
	assert.Equal(t, filepath.FromSlash("/theme/source/js"), MustCompile("/theme/source/js/*.js").Root())
	assert.Equal(t, filepath.FromSlash("/theme"), MustCompile("/theme/theme.toml").Root())
	assert.Equal(t, filepath.FromSlash("/"), MustCompile("/*.js").Root())
	assert.True(t, MustCompile("/theme/theme.toml").Literal())
	assert.False(t, MustCompile("/theme/*.toml").Literal())
}

func TestCompileError(t *testing.T) {
	_, err := Compile("/theme/[unclosed")
	require.Error(t, err)
}

func TestHasMeta(t *testing.T) {
	assert.True(t, HasMeta("js/*.js"))
	assert.True(t, HasMeta("js/{a,b}.js"))
	assert.False(t, HasMeta("js/app.js"))
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"b.js", "a.js", "vendor/c.js", "notes.txt"} {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("//"), 0o644))
	}

	got, err := Expand(filepath.Join(dir, "**", "*.js"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.js"),
		filepath.Join(dir, "b.js"),
		filepath.Join(dir, "vendor", "c.js"),
	}, got)

	got, err = Expand(filepath.Join(dir, "*.js"))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = Expand(filepath.Join(dir, "missing", "*.js"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
