package service

import (
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"
)

func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// cors answers preflights and tags responses for allow-listed origins.
// Requests from other origins are still served; the browser enforces the
// missing headers.
func cors(allowed []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		ok := origin != "" && originAllowed(allowed, origin)
		if ok {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Encoding")
				h.Set("Access-Control-Max-Age", "600")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeBody unwraps zstd request bodies, as sent by clients with
// remote.compress_above set. Other encodings are refused.
func decodeBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch enc := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding"))); enc {
		case "", "identity":
			next.ServeHTTP(w, r)
		case "zstd":
			dec, err := zstd.NewReader(r.Body,
				zstd.WithDecoderMaxMemory(maxRequestBody),
				zstd.WithDecoderMaxWindow(maxRequestBody),
			)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid zstd body")
				return
			}
			defer dec.Close()
			r.Body = io.NopCloser(dec)
			r.Header.Del("Content-Encoding")
			r.ContentLength = -1
			next.ServeHTTP(w, r)
		default:
			writeError(w, http.StatusUnsupportedMediaType, "unsupported Content-Encoding "+enc)
		}
	})
}
