package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vbonduro/restaurantqr/internal/domain"
	"github.com/vbonduro/restaurantqr/internal/gateway"
	"github.com/vbonduro/restaurantqr/internal/qr"
	"github.com/vbonduro/restaurantqr/internal/router"
)

type Server struct {
	gateway   gateway.Gateway
	router    *router.Router
	templates embed.FS
	qrSize    int
	mux       *http.ServeMux
	tmplFuncs template.FuncMap
	logger    *slog.Logger
}

func NewServer(gw gateway.Gateway, tmpl embed.FS, qrSize int, logger *slog.Logger) *Server {
	if qrSize <= 0 {
		qrSize = qr.DefaultSize
	}
	s := &Server{
		gateway:   gw,
		templates: tmpl,
		qrSize:    qrSize,
		mux:       http.NewServeMux(),
		logger:    logger,
		tmplFuncs: template.FuncMap{
			"viewIcon": viewIcon,
			"price":    formatPrice,
			"join":     strings.Join,
		},
	}
	s.router = router.New(logger, s.activators())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /navigate", s.handleNavigate)

	s.mux.HandleFunc("POST /scan", s.handleScanSubmit)
	s.mux.HandleFunc("POST /scan/retry", s.handleScanRetry)
	s.mux.HandleFunc("POST /scan/items", s.handleAddItem)
	s.mux.HandleFunc("POST /scan/items/{id}/edit", s.handleStartEdit)
	s.mux.HandleFunc("POST /scan/items/{id}/done", s.handleFinishEdit)
	s.mux.HandleFunc("POST /scan/items/{id}", s.handleUpdateItem)
	s.mux.HandleFunc("DELETE /scan/items/{id}", s.handleRemoveItem)

	s.mux.HandleFunc("GET /qr/preview", s.handleQRPreview)
	s.mux.HandleFunc("GET /qr/preview.png", s.handleQRImage)
	s.mux.HandleFunc("GET /qr/download", s.handleQRDownload)

	s.mux.HandleFunc("GET /chat/messages", s.handleChatLog)
	s.mux.HandleFunc("POST /chat/messages", s.handleChatSubmit)
	s.mux.HandleFunc("GET /chat/stream", s.handleChatStream)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; "+
				"font-src https://fonts.gstatic.com; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer, which the
// chat stream needs for flushing and deadlines.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

// Close tears down the active screen, cancelling any AI call it has running.
func (s *Server) Close() {
	s.router.Close()
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial parses and executes a single named partial template.
// The file must contain exactly one {{define "name"}}...{{end}} block.
func (s *Server) renderPartial(w http.ResponseWriter, file string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// ParseFS registers both the file-basename template and any {{define}} blocks.
	// Find the {{define}} template: it is the one whose name is neither "" nor
	// the file basename.
	basename := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		basename = file[idx+1:]
	}
	for _, t := range tmpl.Templates() {
		if n := t.Name(); n != "" && n != basename {
			return t.Execute(w, data)
		}
	}
	// Fallback: execute the file-basename template (no {{define}} blocks found).
	return tmpl.ExecuteTemplate(w, basename, data)
}

// viewIcon returns the emoji shown for a view on the dashboard tiles.
func viewIcon(v domain.View) string {
	switch v {
	case domain.ViewScan:
		return "📷"
	case domain.ViewQR:
		return "🔳"
	case domain.ViewChat:
		return "💬"
	case domain.ViewAnalytics:
		return "📊"
	case domain.ViewSettings:
		return "⚙️"
	default:
		return "🏠"
	}
}

func formatPrice(p float64) string {
	return strings.Replace(fmt.Sprintf("%.2f", p), ".", ",", 1)
}
