package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"limbobot/internal/notify"
	"limbobot/internal/registry"
	logx "limbobot/pkg/logx"
)

// Dispatcher delivers a validated inquiry. Implemented by notify.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, rawUsername string, inq notify.Inquiry) notify.Result
}

// ArtistLookup is the read-only roster view the API needs.
type ArtistLookup interface {
	FindByUsername(raw string) (registry.Artist, bool)
}

type Config struct {
	Port       int
	RatePerSec int
}

// Server is the storefront-facing ingress API.
type Server struct {
	cfg        Config
	dispatcher Dispatcher
	lookup     ArtistLookup
	log        logx.Logger
	limiter    *rate.Limiter

	srv *http.Server
}

func NewServer(cfg Config, d Dispatcher, lookup ArtistLookup, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps < 1 {
		rps = 10
	}
	s := &Server{
		cfg:        cfg,
		dispatcher: d,
		lookup:     lookup,
		log:        log,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		r.With(s.throttle).Post("/notification", s.handleNotification)
		r.Get("/artist/{username}/status", s.handleArtistStatus)
	})
	return r
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.log.Info("http api listening", logx.String("addr", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// ---- handlers ----

type notificationResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ArtistFound bool   `json:"artistFound"`
	Timestamp   string `json:"timestamp"`
}

func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	var inq notify.Inquiry
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&inq); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Некорректный JSON в теле запроса",
		})
		return
	}

	if errs := validateInquiry(inq); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Некорректные данные заявки",
			"errors":  errs,
		})
		return
	}

	res := s.dispatcher.Dispatch(r.Context(), inq.ArtistUsername, inq)
	writeJSON(w, http.StatusOK, notificationResponse{
		Success:     res.Delivered(),
		Message:     res.Message,
		ArtistFound: res.ArtistFound(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

func validateInquiry(inq notify.Inquiry) []string {
	var errs []string
	if strings.TrimSpace(inq.ArtistUsername) == "" {
		errs = append(errs, "artistUsername is required")
	}
	if strings.TrimSpace(inq.WorkTitle) == "" {
		errs = append(errs, "workTitle is required")
	}
	if strings.TrimSpace(inq.Customer.FullName) == "" {
		errs = append(errs, "customer.fullName is required")
	}
	if strings.TrimSpace(inq.Customer.Phone) == "" {
		errs = append(errs, "customer.phone is required")
	}
	return errs
}

func (s *Server) handleArtistStatus(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	artist, ok := s.lookup.FindByUsername(username)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"found":   false,
			"message": "Художник не найден",
		})
		return
	}

	resp := map[string]any{
		"found":      true,
		"name":       artist.Name,
		"username":   artist.Username,
		"registered": artist.Registered(),
	}
	if artist.Registered() {
		resp["recipientId"] = artist.RecipientID
		if artist.RegisteredAt != nil {
			resp["registeredAt"] = artist.RegisteredAt.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- middleware ----

type ctxKey int

const requestIDKey ctxKey = 0

// RequestID returns the request id attached by the middleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("http handler panicked",
					logx.String("request_id", RequestID(r.Context())),
					logx.String("path", r.URL.Path),
					logx.Any("panic", rec),
				)
				writeJSON(w, http.StatusInternalServerError, map[string]any{
					"success": false,
					"message": "Внутренняя ошибка сервера",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Info("http request",
			logx.String("request_id", RequestID(r.Context())),
			logx.String("method", r.Method),
			logx.String("path", r.URL.Path),
			logx.Int("status", sw.status),
			logx.Duration("took", time.Since(start)),
		)
	})
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"success": false,
				"message": "Слишком много запросов, попробуйте позже",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(p)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
