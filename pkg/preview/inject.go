package preview

import (
	"bytes"
	"net/http"
	"strings"
)

// maxInjectSize bounds how much of an HTML response is buffered for script
// injection. Larger pages are passed through untouched.
const maxInjectSize = 4 << 20

var (
	scriptTag = []byte(`<script src="` + clientScriptPath + `"></script>`)
	bodyClose = []byte("</body>")
)

// injectReload inserts the live-reload client script before </body> of
// HTML responses produced by next.
func injectReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path != "" && !strings.HasSuffix(path, "/") && !strings.HasSuffix(path, ".html") {
			next.ServeHTTP(w, r)
			return
		}

		// A partial response cannot be rewritten.
		r = r.Clone(r.Context())
		r.Header.Del("Range")

		in := &injector{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(in, r)
		in.finish()
	})
}

// injector buffers an HTML body so the script can be inserted once the
// whole page is known. Non-HTML or oversized bodies switch to passthrough.
type injector struct {
	http.ResponseWriter
	status      int
	buf         bytes.Buffer
	decided     bool
	passthrough bool
	wroteHeader bool
}

func (in *injector) WriteHeader(code int) {
	in.status = code
	if in.passthrough {
		in.flushHeader()
	}
}

func (in *injector) flushHeader() {
	if in.wroteHeader {
		return
	}
	in.wroteHeader = true
	in.ResponseWriter.WriteHeader(in.status)
}

func (in *injector) Write(data []byte) (int, error) {
	if !in.decided {
		in.decided = true
		ct := in.Header().Get("Content-Type")
		if ct != "" && !strings.Contains(ct, "text/html") {
			in.passthrough = true
		}
	}
	if in.passthrough {
		in.flushHeader()
		return in.ResponseWriter.Write(data)
	}

	if in.buf.Len()+len(data) > maxInjectSize {
		in.passthrough = true
		in.flushHeader()
		if _, err := in.ResponseWriter.Write(in.buf.Bytes()); err != nil {
			return 0, err
		}
		in.buf.Reset()
		return in.ResponseWriter.Write(data)
	}
	return in.buf.Write(data)
}

func (in *injector) finish() {
	if in.passthrough {
		in.flushHeader()
		return
	}

	body := in.buf.Bytes()
	if i := bytes.LastIndex(body, bodyClose); i >= 0 {
		out := make([]byte, 0, len(body)+len(scriptTag))
		out = append(out, body[:i]...)
		out = append(out, scriptTag...)
		out = append(out, body[i:]...)
		body = out
	}

	in.Header().Del("Content-Length")
	in.flushHeader()
	_, _ = in.ResponseWriter.Write(body)
}
