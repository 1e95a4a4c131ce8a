package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/MikhailRaia/bookmark-manager/internal/pool"
)

var compressibleTypes = []string{"application/json", "text/html", "text/plain", "text/css"}

var bodyBuffers = pool.NewWith(64, func() *bytes.Buffer { return new(bytes.Buffer) })

func compressible(contentType string) bool {
	for _, t := range compressibleTypes {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

// GzipMiddleware compresses HTML, JSON and text responses when the client
// accepts gzip.
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		buf := bodyBuffers.Get()
		defer bodyBuffers.Put(buf)

		wrapper := &bufferedResponse{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           buf,
		}
		next.ServeHTTP(wrapper, r)

		if buf.Len() == 0 || !compressible(w.Header().Get("Content-Type")) {
			w.WriteHeader(wrapper.statusCode)
			w.Write(buf.Bytes())
			return
		}

		gz, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
		if err != nil {
			w.WriteHeader(wrapper.statusCode)
			w.Write(buf.Bytes())
			return
		}
		defer gz.Close()

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")
		w.WriteHeader(wrapper.statusCode)

		gz.Write(buf.Bytes())
	})
}

// bufferedResponse holds the status and body until the middleware decides
// whether to compress. Headers go straight to the underlying writer.
type bufferedResponse struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

// WriteHeader captures the status code without immediately writing it.
func (w *bufferedResponse) WriteHeader(statusCode int) {
	w.statusCode = statusCode
}

// Write appends the byte slice to the body buffer.
func (w *bufferedResponse) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

// GzipReader transparently decompresses gzipped request bodies.
func GzipReader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") != "gzip" {
			next.ServeHTTP(w, r)
			return
		}

		gzReader, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, "Failed to read gzipped request", http.StatusBadRequest)
			return
		}
		defer gzReader.Close()

		r.Body = io.NopCloser(gzReader)
		r.ContentLength = -1
		r.Header.Del("Content-Encoding")

		next.ServeHTTP(w, r)
	})
}
