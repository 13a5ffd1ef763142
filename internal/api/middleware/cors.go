package middleware

import "net/http"

// CORS sets the allowed origin and headers. It runs ahead of Auth so
// rejected requests still carry them.
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Preflight answers OPTIONS requests. Allowed methods are filled in by
// mux.CORSMethodMiddleware, which must run first.
func Preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
