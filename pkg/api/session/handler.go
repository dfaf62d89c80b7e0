package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"cashflow_sim/pkg/api/respond"
	roundAPI "cashflow_sim/pkg/api/round"
	"cashflow_sim/pkg/core/config"
	"cashflow_sim/pkg/core/logger"
	"cashflow_sim/pkg/core/report"
	"cashflow_sim/pkg/core/round"
	"cashflow_sim/pkg/core/simulate"
	"cashflow_sim/pkg/core/store"
	"cashflow_sim/pkg/core/validate"
)

// Repo is the persistence the handler needs.
type Repo interface {
	Save(ctx context.Context, s *simulate.Session) error
	Load(ctx context.Context, id string) (*simulate.Session, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves multi-round sessions. Active sessions are kept in an
// expiring in-memory cache in front of the repository.
type Handler struct {
	mu    sync.Mutex // serializes session mutations
	cache *gocache.Cache
	repo  Repo
	sim   config.Simulator
}

// NewHandler creates a session handler; ttl controls how long an idle
// session stays cached.
func NewHandler(repo Repo, sim config.Simulator, ttl time.Duration) *Handler {
	return &Handler{
		cache: gocache.New(ttl, 2*ttl),
		repo:  repo,
		sim:   sim,
	}
}

type StartRequest struct {
	Balances *round.BalanceState `json:"balances"`
}

type PlayRequest struct {
	ID     string              `json:"id"`
	Params *round.PolicyParams `json:"params"`
	Strict *bool               `json:"strict"`
}

type IDRequest struct {
	ID string `json:"id"`
}

type PlayResponse struct {
	Record   simulate.RoundRecord `json:"record"`
	Session  Summary              `json:"session"`
	Warnings []string             `json:"warnings,omitempty"`
}

// Summary is a session without its history.
type Summary struct {
	ID            string             `json:"id"`
	Round         int                `json:"round"`
	Start         round.BalanceState `json:"start"`
	Balances      round.BalanceState `json:"balances"`
	TotalCash     float64            `json:"total_cash"`
	CumulativeFCF float64            `json:"cumulative_fcf"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func summarize(s *simulate.Session) Summary {
	return Summary{
		ID:            s.ID,
		Round:         s.Round,
		Start:         s.Start,
		Balances:      s.Balances,
		TotalCash:     s.Balances.TotalCash(),
		CumulativeFCF: s.CumulativeFCF,
		UpdatedAt:     s.UpdatedAt,
	}
}

// HandleStart creates a session from the given or configured balances.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") || !respond.Method(w, r, http.MethodPost) {
		return
	}

	var req StartRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	start := h.sim.Initial
	if req.Balances != nil {
		start = *req.Balances
	}
	if err := validate.CheckBalances(start); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s := simulate.NewSession(uuid.New().String(), start)
	if err := h.persist(r.Context(), s); err != nil {
		logger.L.Error("Failed to save session", zap.String("id", s.ID), zap.Error(err))
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Session started", zap.String("id", s.ID))
	respond.JSON(w, http.StatusCreated, s)
}

// HandlePlay plays one round on a session and adopts its end state.
func (h *Handler) HandlePlay(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") || !respond.Method(w, r, http.MethodPost) {
		return
	}

	var req PlayRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	params := h.sim.Policy
	if req.Params != nil {
		params = *req.Params
	}
	strict := h.sim.Strict
	if req.Strict != nil {
		strict = *req.Strict
	}
	params, warnings, err := roundAPI.Prepare(params, h.sim.Limits, strict)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	cur, ok := h.lookup(w, r, req.ID)
	if !ok {
		return
	}
	s := cur.Clone()
	rec := s.Play(params)
	if err := h.persist(r.Context(), s); err != nil {
		logger.L.Error("Failed to save session", zap.String("id", s.ID), zap.Error(err))
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}
	logger.L.Debug("Round played", zap.String("id", s.ID), zap.Int("round", rec.Round))

	respond.JSON(w, http.StatusOK, PlayResponse{Record: rec, Session: summarize(s), Warnings: warnings})
}

// HandleGet returns a full session, history included.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") || !respond.Method(w, r, http.MethodGet) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.lookup(w, r, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, s)
}

// HandleReset returns a session to its starting balances.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") || !respond.Method(w, r, http.MethodPost) {
		return
	}
	var req IDRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	cur, ok := h.lookup(w, r, req.ID)
	if !ok {
		return
	}
	s := cur.Clone()
	s.Reset()
	if err := h.persist(r.Context(), s); err != nil {
		logger.L.Error("Failed to save session", zap.String("id", s.ID), zap.Error(err))
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}
	respond.JSON(w, http.StatusOK, summarize(s))
}

// HandleDelete drops a session.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") || !respond.Method(w, r, http.MethodPost) {
		return
	}
	var req IDRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, "Missing session id", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache.Delete(req.ID)
	if err := h.repo.Delete(r.Context(), req.ID); err != nil {
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReport narrates the session. format=html renders HTML; all=1
// includes every round instead of only the last.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") || !respond.Method(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()

	h.mu.Lock()
	s, ok := h.lookup(w, r, q.Get("id"))
	var md string
	if ok {
		if q.Get("all") == "1" {
			md = report.SessionMarkdown(s)
		} else if last, played := s.Last(); played {
			md = report.Markdown(last)
		}
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	if md == "" {
		http.Error(w, "No rounds played yet", http.StatusNotFound)
		return
	}

	if q.Get("format") == "html" {
		html, err := report.HTML(md)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(md))
}

// lookup finds a session in the cache or the repository and writes the
// error response itself when it cannot.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, id string) (*simulate.Session, bool) {
	if id == "" {
		http.Error(w, "Missing session id", http.StatusBadRequest)
		return nil, false
	}
	if v, found := h.cache.Get(id); found {
		return v.(*simulate.Session), true
	}

	s, err := h.repo.Load(r.Context(), id)
	if errors.Is(err, store.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		logger.L.Error("Failed to load session", zap.String("id", id), zap.Error(err))
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return nil, false
	}
	h.cache.Set(id, s, gocache.DefaultExpiration)
	return s, true
}

// persist saves s and only then makes it the cached copy, so a failed save
// leaves the previous state in place.
func (h *Handler) persist(ctx context.Context, s *simulate.Session) error {
	if err := h.repo.Save(ctx, s); err != nil {
		return err
	}
	h.cache.Set(s.ID, s, gocache.DefaultExpiration)
	return nil
}
