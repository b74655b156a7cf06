package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
	"github.com/gorilla/mux"
)

// governanceBody is the union of the fields governance actions read.
type governanceBody struct {
	Sender     string                       `json:"sender"`
	Fee        *sdkmath.LegacyDec           `json:"fee,omitempty"`
	StartFee   *sdkmath.LegacyDec           `json:"start_fee,omitempty"`
	EndFee     *sdkmath.LegacyDec           `json:"end_fee,omitempty"`
	Start      time.Time                    `json:"start"`
	End        time.Time                    `json:"end"`
	EndWeights []sdkmath.LegacyDec          `json:"end_weights,omitempty"`
	Enabled    *bool                        `json:"enabled,omitempty"`
	Account    string                       `json:"account,omitempty"`
	Params     []types.CircuitBreakerParams `json:"params,omitempty"`
	Token      *types.TokenRef              `json:"token,omitempty"`
	Rate       *sdkmath.LegacyDec           `json:"rate,omitempty"`
}

var errMissingField = errors.New("missing field")

func requireDec(name string, d *sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if d == nil || d.IsNil() {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %s", errMissingField, name)
	}
	return *d, nil
}

func requireBool(name string, b *bool) (bool, error) {
	if b == nil {
		return false, fmt.Errorf("%w: %s", errMissingField, name)
	}
	return *b, nil
}

func (ws *WebServer) handleGovernance(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	ws.operate(w, r, func(ctx context.Context, id types.PoolID, body []byte) (interface{}, error) {
		// Token additions and removals carry full operation requests.
		switch action {
		case "add-token":
			var req types.AddTokenRequest
			if err := decodeJSON(body, &req); err != nil {
				return nil, err
			}
			return ws.acc.AddToken(ctx, id, req)
		case "remove-token":
			var req types.RemoveTokenRequest
			if err := decodeJSON(body, &req); err != nil {
				return nil, err
			}
			return ws.acc.RemoveToken(ctx, id, req)
		case "collect-aum":
			return ws.acc.CollectAumFees(ctx, id)
		}

		var req governanceBody
		if err := decodeJSON(body, &req); err != nil {
			return nil, err
		}
		return ws.govern(ctx, id, action, req)
	})
}

func (ws *WebServer) govern(ctx context.Context, id types.PoolID, action string, req governanceBody) (interface{}, error) {
	switch action {
	case "swap-fee":
		fee, err := requireDec("fee", req.Fee)
		if err != nil {
			return nil, err
		}
		return ws.acc.SetSwapFeePercentage(ctx, id, req.Sender, fee)
	case "swap-fee-gradual":
		startFee, err := requireDec("start_fee", req.StartFee)
		if err != nil {
			return nil, err
		}
		endFee, err := requireDec("end_fee", req.EndFee)
		if err != nil {
			return nil, err
		}
		return ws.acc.UpdateSwapFeeGradually(ctx, id, req.Sender, req.Start, req.End, startFee, endFee)
	case "weights-gradual":
		if len(req.EndWeights) == 0 {
			return nil, fmt.Errorf("%w: end_weights", errMissingField)
		}
		return ws.acc.UpdateWeightsGradually(ctx, id, req.Sender, req.Start, req.End, req.EndWeights)
	case "swap-enabled":
		enabled, err := requireBool("enabled", req.Enabled)
		if err != nil {
			return nil, err
		}
		return ws.acc.SetSwapEnabled(ctx, id, req.Sender, enabled)
	case "join-exit-enabled":
		enabled, err := requireBool("enabled", req.Enabled)
		if err != nil {
			return nil, err
		}
		return ws.acc.SetJoinExitEnabled(ctx, id, req.Sender, enabled)
	case "must-allowlist":
		enabled, err := requireBool("enabled", req.Enabled)
		if err != nil {
			return nil, err
		}
		return ws.acc.SetMustAllowlistLPs(ctx, id, req.Sender, enabled)
	case "allowlist-add":
		return ws.acc.AddAllowedAddress(ctx, id, req.Sender, req.Account)
	case "allowlist-remove":
		return ws.acc.RemoveAllowedAddress(ctx, id, req.Sender, req.Account)
	case "transfer-ownership":
		return ws.acc.TransferOwnership(ctx, id, req.Sender, req.Account)
	case "circuit-breakers":
		return ws.acc.SetCircuitBreakers(ctx, id, req.Sender, req.Params)
	case "pause":
		return ws.acc.Pause(ctx, id, req.Sender)
	case "unpause":
		return ws.acc.Unpause(ctx, id, req.Sender)
	case "aum-fee":
		fee, err := requireDec("fee", req.Fee)
		if err != nil {
			return nil, err
		}
		return ws.acc.SetManagementAumFeePercentage(ctx, id, req.Sender, fee)
	case "token-rate":
		if req.Token == nil {
			return nil, fmt.Errorf("%w: token", errMissingField)
		}
		rate, err := requireDec("rate", req.Rate)
		if err != nil {
			return nil, err
		}
		return ws.acc.UpdateTokenRate(ctx, id, req.Sender, *req.Token, rate)
	default:
		return nil, fmt.Errorf("%w: governance %q", errUnknownKind, action)
	}
}
