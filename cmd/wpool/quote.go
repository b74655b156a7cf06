package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/accountant"
	"github.com/elys-network/wpool/internal/config"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/vault"

	"github.com/spf13/cobra"
)

type quoteOptions struct {
	Pool   string
	In     string
	Out    string
	Amount string
	Kind   string
}

// quoteResult is printed as JSON by the quote command.
type quoteResult struct {
	Pool      string            `json:"pool"`
	Kind      types.SwapKind    `json:"kind"`
	In        string            `json:"in"`
	Out       string            `json:"out"`
	Amount    sdkmath.Int       `json:"amount"`
	Quote     sdkmath.Int       `json:"quote"`
	SpotPrice sdkmath.LegacyDec `json:"spot_price"`
}

func newQuoteCmd() *cobra.Command {
	var file string
	var opts quoteOptions

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against pools of a deployment file without touching any state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deployments, err := config.LoadDeploymentFile(file)
			if err != nil {
				return err
			}
			return quote(cmd.Context(), cmd.OutOrStdout(), deployments, opts)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML deployment file")
	cmd.Flags().StringVar(&opts.Pool, "pool", "", "pool name (defaults to the first pool)")
	cmd.Flags().StringVar(&opts.In, "in", "0", "token in, as index, symbol or address")
	cmd.Flags().StringVar(&opts.Out, "out", "1", "token out, as index, symbol or address")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "fixed amount in native token units")
	cmd.Flags().StringVar(&opts.Kind, "kind", string(types.GivenIn), "GIVEN_IN or GIVEN_OUT")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// quote deploys the file into a throwaway ledger and prints the projected swap.
func quote(ctx context.Context, w io.Writer, file *config.DeploymentFile, opts quoteOptions) error {
	if len(file.Pools) == 0 {
		return fmt.Errorf("deployment file has no pools")
	}
	amount, ok := sdkmath.NewIntFromString(strings.TrimSpace(opts.Amount))
	if !ok || !amount.IsPositive() {
		return fmt.Errorf("invalid amount %q", opts.Amount)
	}
	kind := types.SwapKind(strings.ToUpper(opts.Kind))
	if kind != types.GivenIn && kind != types.GivenOut {
		return fmt.Errorf("invalid swap kind %q", opts.Kind)
	}

	ledger := vault.NewMemoryVault("")
	acc, err := accountant.New(accountant.Config{Vault: ledger})
	if err != nil {
		return err
	}
	ids, err := deployFromFile(ctx, acc, ledger, file)
	if err != nil {
		return err
	}

	name := opts.Pool
	if name == "" {
		name = file.Pools[0].Name
		if name == "" {
			name = "pool-1"
		}
	}
	id, ok := ids[name]
	if !ok {
		return fmt.Errorf("%w: %s", accountant.ErrPoolNotFound, name)
	}
	p, err := acc.Pool(id)
	if err != nil {
		return err
	}
	in, err := resolveToken(p, opts.In)
	if err != nil {
		return err
	}
	out, err := resolveToken(p, opts.Out)
	if err != nil {
		return err
	}

	res, err := acc.QuerySwap(ctx, id, types.SwapRequest{In: in, Out: out, Amount: amount, Kind: kind})
	if err != nil {
		return err
	}
	price, err := acc.SpotPrice(ctx, id, in, out)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(quoteResult{
		Pool:      name,
		Kind:      kind,
		In:        in.String(),
		Out:       out.String(),
		Amount:    amount,
		Quote:     res.Amount,
		SpotPrice: price,
	})
}
