// Package htmlfmt reformats generated HTML: one block element per line,
// nested blocks indented, whitespace runs collapsed and blank lines dropped.
//
// Formatting is idempotent. Content whose whitespace is significant (pre,
// textarea, script, style and the other raw-text elements) is written back
// exactly as parsed.
package htmlfmt

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Options controls the layout.
type Options struct {
	// IndentSize is the number of spaces per nesting level.
	IndentSize int

	// PreserveNewlines keeps a single blank line where the input separated
	// two blocks by one or more blank lines.
	PreserveNewlines bool
}

// DefaultOptions are the options used when none are given.
//
//nolint:gochecknoglobals // value constant
var DefaultOptions = Options{IndentSize: 2}

//nolint:gochecknoglobals // lookup tables
var (
	inlineElements = map[atom.Atom]bool{
		atom.A: true, atom.Abbr: true, atom.B: true, atom.Bdi: true, atom.Bdo: true,
		atom.Br: true, atom.Button: true, atom.Cite: true, atom.Code: true,
		atom.Data: true, atom.Del: true, atom.Dfn: true, atom.Em: true, atom.I: true,
		atom.Img: true, atom.Input: true, atom.Ins: true, atom.Kbd: true,
		atom.Label: true, atom.Mark: true, atom.Meter: true, atom.Output: true,
		atom.Progress: true, atom.Q: true, atom.S: true, atom.Samp: true,
		atom.Small: true, atom.Span: true, atom.Strong: true, atom.Sub: true,
		atom.Sup: true, atom.Time: true, atom.U: true, atom.Var: true, atom.Wbr: true,
	}

	rawElements = map[atom.Atom]bool{
		atom.Pre: true, atom.Listing: true, atom.Textarea: true, atom.Script: true,
		atom.Style: true, atom.Noscript: true, atom.Iframe: true, atom.Noembed: true,
		atom.Noframes: true, atom.Xmp: true,
	}

	voidElements = map[atom.Atom]bool{
		atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
		atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
		atom.Link: true, atom.Meta: true, atom.Param: true, atom.Source: true,
		atom.Track: true, atom.Wbr: true,
	}

	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\u00a0", "&nbsp;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&#34;")
)

// Format parses r as an HTML document and returns it reformatted.
func Format(r io.Reader, opts Options) ([]byte, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	if opts.IndentSize < 0 {
		opts.IndentSize = 0
	}

	f := &formatter{opts: opts}
	if err := f.children(doc, 0); err != nil {
		return nil, err
	}
	return f.buf.Bytes(), nil
}

// FormatBytes is Format over a byte slice.
func FormatBytes(src []byte, opts Options) ([]byte, error) {
	return Format(bytes.NewReader(src), opts)
}

type formatter struct {
	opts Options
	buf  bytes.Buffer
}

func (f *formatter) line(depth int, s string) {
	f.buf.WriteString(strings.Repeat(" ", depth*f.opts.IndentSize))
	f.buf.WriteString(s)
	f.buf.WriteByte('\n')
}

func (f *formatter) blankLine() {
	if f.buf.Len() > 0 && !bytes.HasSuffix(f.buf.Bytes(), []byte("\n\n")) {
		f.buf.WriteByte('\n')
	}
}

// children lays out n's children at depth, grouping runs of inline content
// onto single lines.
func (f *formatter) children(n *html.Node, depth int) error {
	var run []*html.Node
	wroteAny := false

	flush := func(beforeBlock bool) {
		if len(run) == 0 {
			return
		}
		text := inlineRun(run)
		if text != "" {
			f.line(depth, text)
			wroteAny = true
		} else if f.opts.PreserveNewlines && wroteAny && beforeBlock && blankLineIn(run) {
			f.blankLine()
		}
		run = run[:0]
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isInline(c) {
			run = append(run, c)
			continue
		}
		flush(true)
		if err := f.block(c, depth); err != nil {
			return err
		}
		wroteAny = true
	}
	flush(false)
	return nil
}

func (f *formatter) block(n *html.Node, depth int) error {
	switch n.Type {
	case html.DoctypeNode:
		var b bytes.Buffer
		if err := html.Render(&b, n); err != nil {
			return fmt.Errorf("rendering doctype: %w", err)
		}
		f.line(depth, b.String())
		return nil
	case html.CommentNode:
		f.line(depth, "<!--"+n.Data+"-->")
		return nil
	case html.ElementNode:
	default:
		return nil
	}

	if rawElements[n.DataAtom] {
		var b bytes.Buffer
		if err := html.Render(&b, n); err != nil {
			return fmt.Errorf("rendering <%s>: %w", n.Data, err)
		}
		f.line(depth, b.String())
		return nil
	}
	if voidElements[n.DataAtom] {
		f.line(depth, openTag(n))
		return nil
	}
	if inlineContent(n) {
		f.line(depth, openTag(n)+inlineRun(childList(n))+closeTag(n))
		return nil
	}

	f.line(depth, openTag(n))
	if err := f.children(n, depth+1); err != nil {
		return err
	}
	f.line(depth, closeTag(n))
	return nil
}

// isInline reports whether n can sit on a line with its neighbours.
func isInline(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return true
	case html.ElementNode:
		return inlineElements[n.DataAtom] && inlineContent(n)
	default:
		return false
	}
}

// inlineContent reports whether every child of n is inline.
func inlineContent(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isInline(c) {
			return false
		}
	}
	return true
}

func childList(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// inlineRun renders nodes on one line with whitespace collapsed and the ends
// trimmed.
func inlineRun(nodes []*html.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		writeInline(&b, n)
	}
	return strings.Trim(b.String(), " ")
}

func writeInline(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(textEscaper.Replace(collapse(n.Data)))
	case html.ElementNode:
		b.WriteString(openTag(n))
		if voidElements[n.DataAtom] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeInline(b, c)
		}
		b.WriteString(closeTag(n))
	}
}

func blankLineIn(nodes []*html.Node) bool {
	for _, n := range nodes {
		if n.Type == html.TextNode && strings.Count(n.Data, "\n") >= 2 {
			return true
		}
	}
	return false
}

// collapse replaces each run of ASCII whitespace with one space. Non-breaking
// spaces are content and are kept.
func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r', '\f':
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
		default:
			b.WriteByte(s[i])
			inSpace = false
		}
	}
	return b.String()
}

func openTag(n *html.Node) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(n.Data)
	for _, a := range n.Attr {
		b.WriteByte(' ')
		if a.Namespace != "" {
			b.WriteString(a.Namespace)
			b.WriteByte(':')
		}
		b.WriteString(a.Key)
		if a.Val != "" {
			b.WriteString(`="`)
			b.WriteString(attrEscaper.Replace(a.Val))
			b.WriteByte('"')
		}
	}
	b.WriteByte('>')
	return b.String()
}

func closeTag(n *html.Node) string {
	return "</" + n.Data + ">"
}
