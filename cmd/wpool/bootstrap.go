package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/elys-network/wpool/internal/accountant"
	"github.com/elys-network/wpool/internal/config"
	"github.com/elys-network/wpool/internal/pool"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/vault"

	"github.com/rs/zerolog/log"
)

var errNoFunder = errors.New("initial balances need a from or owner account")

// deployFromFile deploys every pool of the file in order. Pools with initial balances are
// funded by minting the amounts to their from account (falling back to the owner) and then
// initialized. The returned ids are keyed by pool name.
func deployFromFile(ctx context.Context, acc *accountant.Accountant, ledger vault.Ledger, file *config.DeploymentFile) (map[string]types.PoolID, error) {
	ids := make(map[string]types.PoolID, len(file.Pools))
	for i, spec := range file.Pools {
		name := spec.Name
		if name == "" {
			name = "pool-" + strconv.Itoa(i+1)
		}
		if _, dup := ids[name]; dup {
			return nil, fmt.Errorf("pools[%d]: duplicate pool name %q", i, name)
		}

		raw, err := spec.ToRaw()
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", name, err)
		}
		id, err := acc.Deploy(ctx, name, raw)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", name, err)
		}
		ids[name] = id

		amounts, err := spec.InitialAmounts()
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", name, err)
		}
		if len(amounts) == 0 {
			continue
		}
		if err := fundAndInitialize(ctx, acc, ledger, id, raw, amounts); err != nil {
			return nil, fmt.Errorf("pool %s: %w", name, err)
		}
		log.Info().Str("pool", name).Uint64("pool_id", uint64(id)).Msg("Pool funded and initialized")
	}
	return ids, nil
}

func fundAndInitialize(ctx context.Context, acc *accountant.Accountant, ledger vault.Ledger, id types.PoolID, raw types.RawDeployment, amounts types.NAry) error {
	funder := raw.From
	if funder == "" {
		funder = raw.Owner
	}
	if funder == "" {
		return errNoFunder
	}

	p, err := acc.Pool(id)
	if err != nil {
		return err
	}
	expanded, err := amounts.Expand(len(p.Tokens()))
	if err != nil {
		return err
	}
	for i, token := range p.TokenAddresses() {
		if err := ledger.Deposit(funder, token, expanded[i]); err != nil {
			return err
		}
	}

	_, err = acc.Initialize(ctx, id, types.InitRequest{
		InitialBalances: amounts,
		Options:         types.Options{From: funder},
	})
	return err
}

// resolveToken accepts a token index, address or symbol.
func resolveToken(p *pool.Pool, s string) (types.TokenRef, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return types.TokenIndex(i), nil
	}
	for i, t := range p.Tokens() {
		if strings.EqualFold(t.Symbol, s) {
			return types.TokenIndex(i), nil
		}
	}
	if strings.HasPrefix(s, "0x") {
		return types.TokenAddress(s), nil
	}
	return types.TokenRef{}, fmt.Errorf("%w: %s", types.ErrTokenNotFound, s)
}
