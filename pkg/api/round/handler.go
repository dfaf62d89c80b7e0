package round

import (
	"net/http"

	"go.uber.org/zap"

	"cashflow_sim/pkg/api/respond"
	"cashflow_sim/pkg/core/config"
	"cashflow_sim/pkg/core/logger"
	coreRound "cashflow_sim/pkg/core/round"
	"cashflow_sim/pkg/core/validate"
	"cashflow_sim/pkg/core/verify"
)

// Handler serves stateless round computations.
type Handler struct {
	Sim config.Simulator
}

// NewHandler creates a round handler using sim for defaults and limits.
func NewHandler(sim config.Simulator) *Handler {
	return &Handler{Sim: sim}
}

type RoundRequest struct {
	Balances *coreRound.BalanceState `json:"balances"`
	Params   *coreRound.PolicyParams `json:"params"`
	Strict   *bool                   `json:"strict"`
}

type RoundResponse struct {
	coreRound.RoundResult
	Frames       []coreRound.BalanceState  `json:"frames"`
	Params       coreRound.PolicyParams    `json:"params"` // as applied, after clamping
	Warnings     []string                  `json:"warnings,omitempty"`
	Verification verify.VerificationResult `json:"verification"`
}

type FramesRequest struct {
	Start  coreRound.BalanceState `json:"start"`
	Script []coreRound.FlowStep   `json:"script"`
}

type FramesResponse struct {
	Frames []coreRound.BalanceState `json:"frames"`
}

type DefaultsResponse struct {
	Balances coreRound.BalanceState `json:"balances"`
	Params   coreRound.PolicyParams `json:"params"`
	Limits   validate.Limits        `json:"limits"`
	Strict   bool                   `json:"strict"`
}

// HandleRound computes one round. Missing balances or params fall back to
// the configured defaults.
func (h *Handler) HandleRound(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") || !respond.Method(w, r, http.MethodPost) {
		return
	}

	var req RoundRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	balances := h.Sim.Initial
	if req.Balances != nil {
		balances = *req.Balances
	}
	if err := validate.CheckBalances(balances); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := h.Sim.Policy
	if req.Params != nil {
		params = *req.Params
	}
	strict := h.Sim.Strict
	if req.Strict != nil {
		strict = *req.Strict
	}

	params, warnings, err := Prepare(params, h.Sim.Limits, strict)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := coreRound.ComputeRound(balances, params)
	check := verify.CheckRound(balances, params, res)
	if !check.Passed {
		logger.L.Error("Round failed verification", zap.Strings("warnings", check.Warnings))
	}
	logger.L.Debug("Round computed", zap.Int("steps", len(res.Script)), zap.Float64("firm_cash", res.End.FirmCash))

	respond.JSON(w, http.StatusOK, RoundResponse{
		RoundResult:  res,
		Frames:       coreRound.ComputeFrames(balances, res.Script),
		Params:       params,
		Warnings:     warnings,
		Verification: check,
	})
}

// HandleFrames replays a script the caller already holds.
func (h *Handler) HandleFrames(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") || !respond.Method(w, r, http.MethodPost) {
		return
	}

	var req FramesRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	respond.JSON(w, http.StatusOK, FramesResponse{Frames: coreRound.ComputeFrames(req.Start, req.Script)})
}

// HandleDefaults returns the configured starting point and control ranges.
func (h *Handler) HandleDefaults(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") || !respond.Method(w, r, http.MethodGet) {
		return
	}
	respond.JSON(w, http.StatusOK, DefaultsResponse{
		Balances: h.Sim.Initial,
		Params:   h.Sim.Policy,
		Limits:   h.Sim.Limits,
		Strict:   h.Sim.Strict,
	})
}

// Prepare applies the slider limits: strict mode rejects, otherwise clamps.
func Prepare(p coreRound.PolicyParams, lim validate.Limits, strict bool) (coreRound.PolicyParams, []string, error) {
	if strict {
		if err := validate.Strict(p, lim); err != nil {
			return p, nil, err
		}
		return p, nil, nil
	}
	out, notes := validate.ClampParams(p, lim)
	return out, notes, nil
}
