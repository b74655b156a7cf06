package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elys-network/wpool/internal/types"
	"github.com/gorilla/mux"
)

type deployBody struct {
	Name       string              `json:"name"`
	Deployment types.RawDeployment `json:"deployment"`
}

// kindBody selects the join or exit variant. Joins: GIVEN_IN (default), GIVEN_OUT,
// ALL_GIVEN_OUT. Exits: GIVEN_OUT (default), SINGLE_GIVEN_IN, MULTI_GIVEN_IN.
type kindBody struct {
	Kind string `json:"kind"`
}

var errUnknownKind = errors.New("unknown operation kind")

func (ws *WebServer) handleListPools(w http.ResponseWriter, r *http.Request) {
	pools := ws.acc.Snapshots()
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"pools": pools,
		"count": len(pools),
	})
}

func (ws *WebServer) handleDeploy(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	var req deployBody
	if err := decodeJSON(body, &req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := ws.acc.Deploy(r.Context(), req.Name, req.Deployment)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	snap, err := ws.acc.Snapshot(id)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusCreated, snap)
}

func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	id, err := poolID(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := ws.acc.Pool(id)
	if err != nil {
		ws.writeError(w, err)
		return
	}

	paused, windowEnd, bufferEnd := p.PauseState()
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"name":                    ws.acc.Name(id),
		"snapshot":                p.Snapshot(),
		"deployment":              p.Deployment(),
		"rights":                  p.Rights(),
		"token_rates":             p.TokenRates(),
		"gradual_weight_update":   p.GradualWeightUpdateParams(),
		"gradual_swap_fee":        p.GradualSwapFeeUpdateParams(),
		"allowed_addresses":       p.AllowedAddresses(),
		"last_aum_fee_collection": p.LastAumFeeCollection(),
		"pause": map[string]interface{}{
			"paused":            paused,
			"pause_window_end":  windowEnd,
			"buffer_period_end": bufferEnd,
		},
	})
}

// operate decodes the pool id and body and writes the handler result.
func (ws *WebServer) operate(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, id types.PoolID, body []byte) (interface{}, error)) {
	id, err := poolID(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := readBody(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := run(r.Context(), id, body)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, res)
}

func (ws *WebServer) handleInit(w http.ResponseWriter, r *http.Request) {
	ws.operate(w, r, ws.initialize)
}

func (ws *WebServer) handleJoin(w http.ResponseWriter, r *http.Request) {
	ws.operate(w, r, func(ctx context.Context, id types.PoolID, body []byte) (interface{}, error) {
		return ws.join(ctx, id, body, false)
	})
}

func (ws *WebServer) handleExit(w http.ResponseWriter, r *http.Request) {
	ws.operate(w, r, func(ctx context.Context, id types.PoolID, body []byte) (interface{}, error) {
		return ws.exit(ctx, id, body, false)
	})
}

func (ws *WebServer) handleSwap(w http.ResponseWriter, r *http.Request) {
	ws.operate(w, r, func(ctx context.Context, id types.PoolID, body []byte) (interface{}, error) {
		return ws.swap(ctx, id, body, false)
	})
}

func (ws *WebServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	ws.operate(w, r, func(ctx context.Context, id types.PoolID, body []byte) (interface{}, error) {
		switch kind {
		case "init":
			var req types.InitRequest
			if err := decodeJSON(body, &req); err != nil {
				return nil, err
			}
			return ws.acc.QueryInitialize(ctx, id, req)
		case "join":
			return ws.join(ctx, id, body, true)
		case "exit":
			return ws.exit(ctx, id, body, true)
		case "swap":
			return ws.swap(ctx, id, body, true)
		default:
			return nil, fmt.Errorf("%w: query %q", errUnknownKind, kind)
		}
	})
}

func (ws *WebServer) initialize(ctx context.Context, id types.PoolID, body []byte) (interface{}, error) {
	var req types.InitRequest
	if err := decodeJSON(body, &req); err != nil {
		return nil, err
	}
	return ws.acc.Initialize(ctx, id, req)
}

func (ws *WebServer) join(ctx context.Context, id types.PoolID, body []byte, dryRun bool) (interface{}, error) {
	var kind kindBody
	if err := decodeJSON(body, &kind); err != nil {
		return nil, err
	}
	switch strings.ToUpper(kind.Kind) {
	case "", "GIVEN_IN":
		var req types.JoinGivenInRequest
		if err := decodeJSON(body, &req); err != nil {
			return nil, err
		}
		if dryRun {
			return ws.acc.QueryJoinGivenIn(ctx, id, req)
		}
		return ws.acc.JoinGivenIn(ctx, id, req)
	case "GIVEN_OUT":
		var req types.JoinGivenOutRequest
		if err := decodeJSON(body, &req); err != nil {
			return nil, err
		}
		if dryRun {
			return ws.acc.QueryJoinGivenOut(ctx, id, req)
		}
		return ws.acc.JoinGivenOut(ctx, id, req)
	case "ALL_GIVEN_OUT":
		var req types.JoinAllGivenOutRequest
		if err := decodeJSON(body, &req); err != nil {
			return nil, err
		}
		if dryRun {
			return ws.acc.QueryJoinAllGivenOut(ctx, id, req)
		}
		return ws.acc.JoinAllGivenOut(ctx, id, req)
	default:
		return nil, fmt.Errorf("%w: join %q", errUnknownKind, kind.Kind)
	}
}

func (ws *WebServer) exit(ctx context.Context, id types.PoolID, body []byte, dryRun bool) (interface{}, error) {
	var kind kindBody
	if err := decodeJSON(body, &kind); err != nil {
		return nil, err
	}
	switch strings.ToUpper(kind.Kind) {
	case "", "GIVEN_OUT":
		var req types.ExitGivenOutRequest
		if err := decodeJSON(body, &req); err != nil {
			return nil, err
		}
		if dryRun {
			return ws.acc.QueryExitGivenOut(ctx, id, req)
		}
		return ws.acc.ExitGivenOut(ctx, id, req)
	case "SINGLE_GIVEN_IN":
		var req types.SingleExitGivenInRequest
		if err := decodeJSON(body, &req); err != nil {
			return nil, err
		}
		if dryRun {
			return ws.acc.QuerySingleExitGivenIn(ctx, id, req)
		}
		return ws.acc.SingleExitGivenIn(ctx, id, req)
	case "MULTI_GIVEN_IN":
		var req types.MultiExitGivenInRequest
		if err := decodeJSON(body, &req); err != nil {
			return nil, err
		}
		if dryRun {
			return ws.acc.QueryMultiExitGivenIn(ctx, id, req)
		}
		return ws.acc.MultiExitGivenIn(ctx, id, req)
	default:
		return nil, fmt.Errorf("%w: exit %q", errUnknownKind, kind.Kind)
	}
}

func (ws *WebServer) swap(ctx context.Context, id types.PoolID, body []byte, dryRun bool) (interface{}, error) {
	var req types.SwapRequest
	if err := decodeJSON(body, &req); err != nil {
		return nil, err
	}
	if dryRun {
		return ws.acc.QuerySwap(ctx, id, req)
	}
	return ws.acc.Swap(ctx, id, req)
}

func (ws *WebServer) handleSpotPrice(w http.ResponseWriter, r *http.Request) {
	id, err := poolID(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := tokenRef(r.URL.Query().Get("in"))
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := tokenRef(r.URL.Query().Get("out"))
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	price, err := ws.acc.SpotPrice(r.Context(), id, in, out)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"spot_price": price})
}

func (ws *WebServer) handleCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	id, err := poolID(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	ref, err := tokenRef(mux.Vars(r)["token"])
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := ws.acc.CircuitBreakerState(r.Context(), id, ref)
	if err != nil {
		ws.writeError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, st)
}

func (ws *WebServer) handleReceipts(w http.ResponseWriter, r *http.Request) {
	var id types.PoolID
	if s := r.URL.Query().Get("pool"); s != "" {
		parsed, err := parsePoolID(s)
		if err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		id = parsed
	}
	limit := queryLimit(r, 50)
	receipts := ws.acc.Receipts(id, limit)
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	})
}

func (ws *WebServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if ws.history == nil {
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}
	id, err := poolID(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := queryLimit(r, 20)
	snapshots, err := ws.history.PoolHistory(r.Context(), id, limit)
	if err != nil {
		webLogger.Error().Err(err).Uint64("pool_id", uint64(id)).Msg("Failed to get pool history")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve pool history")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
		"limit":     limit,
	})
}

func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if ws.history == nil {
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}
	id, err := poolID(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	stats, err := ws.history.PoolStats(r.Context(), id)
	if err != nil {
		webLogger.Error().Err(err).Uint64("pool_id", uint64(id)).Msg("Failed to get pool stats")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve pool stats")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, stats)
}

func (ws *WebServer) handleBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"account": vars["account"],
		"asset":   vars["asset"],
		"balance": ws.acc.Balance(vars["account"], vars["asset"]),
	})
}
