package token

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ppc-network/tasklist/internal/domain"
)

// CallerHeader carries the identity of the minter on token requests.
const CallerHeader = "X-Caller"

type mintRequest struct {
	To     domain.Address `json:"to"`
	Amount int64          `json:"amount"`
}

type burnRequest struct {
	From   domain.Address `json:"from"`
	Amount int64          `json:"amount"`
}

type balanceResponse struct {
	Address domain.Address `json:"address"`
	Balance int64          `json:"balance"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Handler serves a Ledger over HTTP:
//
//	POST /mint            {to, amount}
//	POST /burn            {from, amount}
//	GET  /balance/{address}
//	GET  /supply
//
// The minter identity is read from the X-Caller header.
func Handler(l *Ledger) http.Handler {
	r := chi.NewRouter()

	r.Post("/mint", func(w http.ResponseWriter, r *http.Request) {
		var req mintRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		minter := domain.Address(r.Header.Get(CallerHeader))
		if err := l.MintAs(r.Context(), minter, req.To, req.Amount); err != nil {
			writeLedgerError(w, err)
			return
		}
		bal, _ := l.BalanceOf(req.To)
		writeJSON(w, http.StatusOK, balanceResponse{Address: req.To, Balance: bal})
	})

	r.Post("/burn", func(w http.ResponseWriter, r *http.Request) {
		var req burnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		minter := domain.Address(r.Header.Get(CallerHeader))
		if err := l.BurnAs(r.Context(), minter, req.From, req.Amount); err != nil {
			writeLedgerError(w, err)
			return
		}
		bal, _ := l.BalanceOf(req.From)
		writeJSON(w, http.StatusOK, balanceResponse{Address: req.From, Balance: bal})
	})

	r.Get("/balance/{address}", func(w http.ResponseWriter, r *http.Request) {
		param := chi.URLParam(r, "address")
		// chi matches on RawPath when the path carries escapes like %2F.
		if r.URL.RawPath != "" {
			if u, err := url.PathUnescape(param); err == nil {
				param = u
			}
		}
		addr := domain.Address(param)
		bal, err := l.BalanceOf(addr)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, balanceResponse{Address: addr, Balance: bal})
	})

	r.Get("/supply", func(w http.ResponseWriter, r *http.Request) {
		total, err := l.TotalSupply()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"total_supply": total})
	})

	return r
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotMinter):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInsufficientRewards):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var body errorBody
	body.Error.Message = msg
	body.Error.Type = "token_error"
	writeJSON(w, status, body)
}
