package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ppc-network/tasklist/internal/domain"
)

const defaultListLimit = 100

// ─── Request Types ──────────────────────────────────────────────────────────

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type addressRequest struct {
	Address string `json:"address"`
}

type hoursRequest struct {
	Hours int64 `json:"hours"`
}

type fundRequest struct {
	Amount int64 `json:"amount"`
}

type completeRequest struct {
	PPCWorker int64 `json:"ppc_worker"`
}

type validateRequest struct {
	PPC     int64 `json:"ppc"`
	QRating int64 `json:"q_rating"`
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func caller(r *http.Request) domain.Address {
	return domain.Address(r.Header.Get(CallerHeader))
}

// taskID parses the {id} route parameter, writing a 400 on failure.
func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int64) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

// ─── Economics ──────────────────────────────────────────────────────────────

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.tasks.ContractBalance()
	if err != nil {
		writeTaskError(w, err)
		return
	}
	count, err := s.tasks.TaskCount()
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contract_balance": balance,
		"salary_rate":      s.tasks.SalaryRate(),
		"task_count":       count,
	})
}

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	earned, err := s.tasks.Earnings(addr)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	history, err := s.tasks.LedgerHistory(domain.PayeeAccount(addr), defaultListLimit)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address":  addr,
		"earnings": earned,
		"entries":  history,
	})
}

func (s *Server) handleRewardBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	bal, err := s.tokens.BalanceOf(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr,
		"balance": bal,
	})
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	state := domain.StateAny
	if name := r.URL.Query().Get("state"); name != "" {
		st, err := domain.ParseTaskState(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		state = st
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	tasks, err := s.tasks.ListTasks(state, int(limit))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := s.tasks.CreateTask(r.Context(), caller(r), req.Title, req.Description)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := s.tasks.GetTask(id)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleToggleStarted(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	state, err := s.tasks.ToggleStarted(r.Context(), caller(r), id)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "state": state})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req completeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.tasks.CompleteTask(r.Context(), caller(r), id, req.PPCWorker); err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "state": domain.StateCompleted})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req validateRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.tasks.ValidateTask(r.Context(), caller(r), id, req.PPC, req.QRating); err != nil {
		writeTaskError(w, err)
		return
	}
	task, err := s.tasks.GetTask(id)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ─── Roles ──────────────────────────────────────────────────────────────────

func (s *Server) handleValidators(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	addrs, err := s.tasks.Validators(id)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"validators": nonNil(addrs)})
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	addrs, err := s.tasks.Workers(id)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workers": nonNil(addrs)})
}

func (s *Server) handleAddValidator(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req addressRequest
	if !decode(w, r, &req) {
		return
	}
	added, err := s.tasks.AddValidator(r.Context(), caller(r), id, domain.Address(req.Address))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added})
}

func (s *Server) handleAddWorker(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req addressRequest
	if !decode(w, r, &req) {
		return
	}
	added, err := s.tasks.AddWorker(r.Context(), caller(r), id, domain.Address(req.Address))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added})
}

func nonNil(addrs []domain.Address) []domain.Address {
	if addrs == nil {
		return []domain.Address{}
	}
	return addrs
}

// ─── Hours & Funding ────────────────────────────────────────────────────────

func (s *Server) handleAddHours(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req hoursRequest
	if !decode(w, r, &req) {
		return
	}
	total, err := s.tasks.AddWorkedHours(r.Context(), caller(r), id, req.Hours)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"worker": caller(r), "hours": total})
}

func (s *Server) handleGetHours(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	worker := domain.Address(chi.URLParam(r, "worker"))
	hrs, err := s.tasks.WorkedHours(id, worker)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"worker": worker, "hours": hrs})
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req fundRequest
	if !decode(w, r, &req) {
		return
	}
	balance, err := s.tasks.FundTask(r.Context(), caller(r), id, req.Amount)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "balance": balance})
}
