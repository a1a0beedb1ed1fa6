// Package server expõe o relay por HTTP.
//
//	POST    /api/analyze  análise de um domínio
//	OPTIONS /api/analyze  preflight CORS (200, sem corpo)
//	GET     /api/stats    contadores do rate limit (se habilitado)
//	GET     /healthz
package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"privacy-advisor/assessment"
	"privacy-advisor/geo"
	"privacy-advisor/middleware/ratelimit"
	"privacy-advisor/middleware/ratelimit/infra"
	"privacy-advisor/relay"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	// MaxBodyBytes limita o corpo do POST /api/analyze.
	MaxBodyBytes = 64 << 10

	MsgMethodNotAllowed = "Method not allowed"
	MsgBusy             = "Too many analyses in progress"
	MsgNotFound         = "Not found"
	MsgStatsUnavailable = "Stats unavailable"
)

// Analyzer é o que o servidor precisa do relay.
type Analyzer interface {
	Analyze(ctx context.Context, in relay.Input, callerID string) (assessment.Record, error)
}

// StatsReader expõe os contadores do rate limit. Tanto o store em memória
// quanto o Redis satisfazem.
type StatsReader interface {
	Snapshot(ctx context.Context) (infra.Snapshot, error)
}

type Options struct {
	Analyzer Analyzer
	KeyFunc  ratelimit.KeyFunc
	// Geo infere a região quando o cliente não envia uma.
	Geo         geo.Resolver
	Stats       StatsReader
	Concurrency ratelimit.ConcurrencyOptions
	AllowOrigin string
	Logger      *zap.Logger
}

type Server struct {
	analyzer    Analyzer
	keyFn       ratelimit.KeyFunc
	geo         geo.Resolver
	stats       StatsReader
	limiter     *ratelimit.Limiter
	allowOrigin string
	log         *zap.Logger
}

func New(opts Options) *Server {
	s := &Server{
		analyzer:    opts.Analyzer,
		keyFn:       opts.KeyFunc,
		geo:         opts.Geo,
		stats:       opts.Stats,
		allowOrigin: opts.AllowOrigin,
		log:         opts.Logger,
	}
	if s.keyFn == nil {
		s.keyFn = ratelimit.DefaultKeyFunc(ratelimit.KeyOptions{TrustXForwardedFor: true})
	}
	if s.allowOrigin == "" {
		s.allowOrigin = "*"
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	copts := opts.Concurrency
	copts.OnReject = func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusServiceUnavailable, MsgBusy)
	}
	s.limiter = ratelimit.NewLimiter(copts)
	return s
}

// Routes monta o router chi com todos os middlewares.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, MsgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
	})

	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Options("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.With(s.limiter.Middleware).Post("/api/analyze", s.handleAnalyze)

	if s.stats != nil {
		r.Get("/api/stats", s.handleStats)
	}
	return r
}

type analyzeBody struct {
	Domain       any `json:"domain"`
	UserType     any `json:"userType"`
	Region       any `json:"region"`
	ForceRefresh any `json:"forceRefresh"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var body analyzeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.log.Debug("bad analyze body", zap.Error(err))
		writeError(w, http.StatusBadRequest, relay.MsgMissingDomain)
		return
	}

	domainStr, ok := body.Domain.(string)
	if !ok {
		writeError(w, http.StatusBadRequest, relay.MsgMissingDomain)
		return
	}

	callerID := s.keyFn(r)
	in := relay.Input{
		Domain:       domainStr,
		UserType:     stringOr(body.UserType, string(assessment.AudienceAdult)),
		Region:       stringOr(body.Region, ""),
		ForceRefresh: body.ForceRefresh == true,
	}
	if in.Region == "" {
		in.Region = geo.RegionFor(s.geo, callerID, assessment.DefaultRegion)
	}

	rec, err := s.analyzer.Analyze(r.Context(), in, callerID)
	if err != nil {
		s.writeRelayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.stats.Snapshot(r.Context())
	if err != nil {
		s.log.Warn("stats read failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, MsgStatsUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     snap.Total,
		"byScope":   snap.ByScope,
		"inFlight":  s.limiter.InUse(),
		"slotsFree": s.limiter.Available(),
	})
}

// StatusFor traduz o tipo do erro do relay para o status HTTP.
func StatusFor(k relay.Kind) int {
	switch k {
	case relay.KindInvalidInput:
		return http.StatusBadRequest
	case relay.KindRateLimited:
		return http.StatusTooManyRequests
	case relay.KindUpstreamUnavailable, relay.KindMalformedUpstreamReply, relay.KindIncompleteUpstreamReply:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeRelayError(w http.ResponseWriter, err error) {
	var rerr *relay.Error
	if !errors.As(err, &rerr) {
		s.log.Error("unexpected analyze failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, relay.MsgAnalysisFailed)
		return
	}
	if rerr.Kind == relay.KindRateLimited && rerr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rerr.RetryAfter)))
	}
	writeError(w, StatusFor(rerr.Kind), rerr.Msg)
}

func retryAfterSeconds(d time.Duration) int {
	sec := int(math.Ceil(d.Seconds()))
	if sec < 1 {
		sec = 1
	}
	return sec
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
