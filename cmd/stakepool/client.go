package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"StakePool/internal/client"

	"github.com/spf13/cobra"
)

var clientFlags = struct {
	server string
	caller string
}{}

func newClient() *client.Client {
	return client.New(clientFlags.server, clientFlags.caller)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// clientCommands returns the subcommands that talk to a running server.
func clientCommands() []*cobra.Command {
	defaultServer := "http://localhost:8080"
	if v := os.Getenv("STAKEPOOL_SERVER"); v != "" {
		defaultServer = v
	}

	stake := &cobra.Command{
		Use:   "stake <amount>",
		Short: "Stake tokens into the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := newClient().Stake(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("staked %s\n", amount)
			return nil
		},
	}

	unstake := &cobra.Command{
		Use:   "unstake",
		Short: "Withdraw the whole stake, minus the penalty inside the locked time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payout, err := newClient().Unstake(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("received %s\n", payout)
			return nil
		},
	}

	claim := &cobra.Command{
		Use:   "claim",
		Short: "Claim accrued rewards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reward, err := newClient().Claim(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("claimed %s\n", reward)
			return nil
		},
	}

	approve := &cobra.Command{
		Use:   "approve <token> <amount>",
		Short: "Allow the pool to pull tokens from the caller",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bal, err := newClient().Approve(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(bal)
		},
	}

	mint := &cobra.Command{
		Use:   "mint <token> <address> <amount>",
		Short: "Credit tokens to an address (owner only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bal, err := newClient().Mint(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return printJSON(bal)
		},
	}

	balance := &cobra.Command{
		Use:   "balance <token> [address]",
		Short: "Show a token balance and allowance",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := clientFlags.caller
			if len(args) == 2 {
				addr = args[1]
			}
			bal, err := newClient().Balance(cmd.Context(), args[0], addr)
			if err != nil {
				return err
			}
			return printJSON(bal)
		},
	}

	account := &cobra.Command{
		Use:   "account [address]",
		Short: "Show a participant's position",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := clientFlags.caller
			if len(args) == 1 {
				addr = args[0]
			}
			acct, err := newClient().Account(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return printJSON(acct)
		},
	}

	var historyLimit int
	history := &cobra.Command{
		Use:   "history [address]",
		Short: "Show a participant's recent operations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := clientFlags.caller
			if len(args) == 1 {
				addr = args[0]
			}
			events, err := newClient().History(cmd.Context(), addr, historyLimit)
			if err != nil {
				return err
			}
			return printJSON(events)
		},
	}
	history.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of operations")

	pool := &cobra.Command{
		Use:   "pool",
		Short: "Show the pool summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := newClient().Pool(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}

	setRate := &cobra.Command{
		Use:   "set-rate <percent>",
		Short: "Set the reward rate per period (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid percent %q: %w", args[0], err)
			}
			view, err := newClient().SetRewardRate(cmd.Context(), percent)
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}

	setLocked := &cobra.Command{
		Use:   "set-locked-time <duration>",
		Short: "Set the early-withdrawal window, e.g. 20m (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", args[0], err)
			}
			view, err := newClient().SetLockedTime(cmd.Context(), d)
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}

	cmds := []*cobra.Command{stake, unstake, claim, approve, mint, balance, account, history, pool, setRate, setLocked}
	for _, c := range cmds {
		c.Flags().StringVar(&clientFlags.server, "server", defaultServer, "stakepool API base URL")
		c.Flags().StringVar(&clientFlags.caller, "as", os.Getenv("STAKEPOOL_CALLER"), "address to act as")
	}
	return cmds
}
