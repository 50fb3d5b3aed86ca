package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/auditledger"
)

// identify binds the wallet header to the request context. Requests
// without the header stay anonymous.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := strings.TrimSpace(r.Header.Get(WalletHeader))
		if addr == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !common.IsHexAddress(addr) || !strings.HasPrefix(addr, "0x") {
			writeError(w, http.StatusBadRequest, "invalid "+WalletHeader)
			return
		}
		ctx := auditledger.WithIdentity(r.Context(), s.admins.Identify(addr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error("http request", attrs...)
			return
		}
		s.logger.Debug("http request", attrs...)
	})
}
