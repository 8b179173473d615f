package htmlfmt

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html><head><title>Home</title>
<meta charset="utf-8"></head>
<body>
<div class="wrap"><p>Hello    <b>world</b>
and friends</p>



<ul><li>One</li><li>Two</li></ul></div>
</body></html>
`

func format(t *testing.T, src string, opts Options) string {
	t.Helper()
	out, err := FormatBytes([]byte(src), opts)
	require.NoError(t, err)
	return string(out)
}

func TestFormatPage(t *testing.T) {
	want := `<!DOCTYPE html>
<html>
  <head>
    <title>Home</title>
    <meta charset="utf-8">
  </head>
  <body>
    <div class="wrap">
      <p>Hello <b>world</b> and friends</p>
      <ul>
        <li>One</li>
        <li>Two</li>
      </ul>
    </div>
  </body>
</html>
`
	assert.Equal(t, want, format(t, page, DefaultOptions))
}

func TestFormatPreserveNewlines(t *testing.T) {
	got := format(t, page, Options{IndentSize: 2, PreserveNewlines: true})
	assert.Contains(t, got, "and friends</p>\n\n      <ul>\n")
}

func TestFormatIndentSize(t *testing.T) {
	got := format(t, "<div><p>x</p></div>", Options{IndentSize: 4})
	assert.Contains(t, got, "\n        <div>\n            <p>x</p>\n        </div>\n")
}

func TestFormatKeepsRawContent(t *testing.T) {
	src := "<html><body><div><pre>  line 1\n    line 2\n</pre><script>if (a < b) {\n  go();\n}</script></div></body></html>"
	want := `<html>
  <head></head>
  <body>
    <div>
      <pre>  line 1
    line 2
</pre>
      <script>if (a < b) {
  go();
}</script>
    </div>
  </body>
</html>
`
	assert.Equal(t, want, format(t, src, DefaultOptions))
}

func TestFormatEscaping(t *testing.T) {
	got := format(t, `<p title='say "hi"'>a &amp; b &lt;c&gt;&nbsp;d <input disabled></p>`, DefaultOptions)
	assert.Contains(t, got, `<p title="say &#34;hi&#34;">a &amp; b &lt;c&gt;&nbsp;d <input disabled></p>`)
}

func TestFormatComments(t *testing.T) {
	got := format(t, "<body><!-- nav --><nav>x</nav></body>", DefaultOptions)
	assert.Contains(t, got, "  <body>\n    <!-- nav -->\n    <nav>x</nav>\n  </body>\n")
}

func TestFormatInlineWithBlockChild(t *testing.T) {
	got := format(t, `<body>Click <a href="/x"><div>here</div></a> now</body>`, DefaultOptions)
	assert.Contains(t, got, "    Click\n    <a href=\"/x\">\n      <div>here</div>\n    </a>\n    now\n")
}

func TestFormatIsIdempotent(t *testing.T) {
	inputs := []string{
		page,
		"<html><body><div><pre>\n\nfirst\n</pre><textarea>\n a  b</textarea></div></body></html>",
		`<p title='say "hi"'>a &amp; b &lt;c&gt;&nbsp;d <input disabled></p>`,
		"<body>text<!-- c --><span> a </span>  <em>b</em>\n\n\n<section>\n\n<h1>T</h1>\n\n\n<p>x</p></section></body>",
		`<body>Click <a href="/x"><div>here</div></a> now</body>`,
		`<body><svg viewBox="0 0 10 10"><path d="M0 0L10 10"/><use xlink:href="#i"/></svg></body>`,
		"<table><tr><td>1</td><td> 2 </td></tr></table>",
		"",
	}

	for _, opts := range []Options{DefaultOptions, {IndentSize: 4, PreserveNewlines: true}} {
		for _, in := range inputs {
			once := format(t, in, opts)
			twice := format(t, once, opts)
			assert.Equal(t, once, twice, "input: %q", in)
		}
	}
}

func TestFormatTree(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.html")
	post := filepath.Join(dir, "posts", "first", "index.html")
	css := filepath.Join(dir, "css", "app.css")
	for path, content := range map[string]string{
		index: page,
		post:  "<html><body><p>post</p></body></html>",
		css:   "a  {  }",
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	require.NoError(t, FormatTree(context.Background(), dir, DefaultOptions))

	got, err := os.ReadFile(index)
	require.NoError(t, err)
	assert.Equal(t, format(t, page, DefaultOptions), string(got))

	got, err = os.ReadFile(post)
	require.NoError(t, err)
	assert.Contains(t, string(got), "    <p>post</p>\n")

	got, err = os.ReadFile(css)
	require.NoError(t, err)
	assert.Equal(t, "a  {  }", string(got), "non-html files are untouched")

	rewritten, err := formatFile(index, DefaultOptions)
	require.NoError(t, err)
	assert.False(t, rewritten, "formatted files are not rewritten")
}

func TestFormatTreeMissingDir(t *testing.T) {
	require.NoError(t, FormatTree(context.Background(), filepath.Join(t.TempDir(), "public"), DefaultOptions))
}
