package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bitfsorg/sharepool-go/amount"
	"github.com/bitfsorg/sharepool-go/config"
	"github.com/bitfsorg/sharepool-go/ledger"
	"github.com/bitfsorg/sharepool-go/revshare"
	"github.com/bitfsorg/sharepool-go/types"
)

// fmtAmount renders a u128 with thousands separators.
func fmtAmount(a amount.Amount) string {
	return humanize.BigComma(a.Big())
}

func printTokens(w io.Writer, entries []ledger.TokenAmount) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%-32s %s\n", e.Token, fmtAmount(e.Amount))
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newInitCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory, its config file and an empty ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			path := config.ConfigPath(cfg.DataDir)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.SaveConfig(path, cfg); err != nil {
				return err
			}
			return withApp(v, func(a *app) error {
				if err := a.store.Commit(a.ledger.State(), nil); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "initialized %s for contract %s (owner %s)\n",
					cfg.DataDir, cfg.ContractID, cfg.Owner)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.String("contract", "", "contract account id")
	f.String("owner", "", "owner account id")
	f.String("distributor", "", "distributor account id")
	f.String("rewarder", "", "badge registry account id")
	f.String("scoretoken", "", "reward token whose payouts are reported as score")
	f.String("whitelist", "", "comma separated reward tokens")
	f.String("depositor", "", "who may deposit: owner, distributor or either")
	f.Bool("badgepenalty", false, "penalize burns by accounts without a badge")
	bindFlags(v, cmd, "contract", "owner", "distributor", "rewarder", "scoretoken", "whitelist", "depositor", "badgepenalty")
	return cmd
}

func newShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:       "show <supply|balance|whitelist|rewards|deposits|accounts|metadata|events> [account]",
		Short:     "Print ledger state",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"supply", "balance", "whitelist", "rewards", "deposits", "accounts", "metadata", "events"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withApp(v, func(a *app) error {
				l := a.ledger
				switch args[0] {
				case "supply":
					fmt.Fprintln(out, fmtAmount(l.TotalSupply()))
				case "balance":
					if len(args) != 2 {
						return errors.New("show balance needs an account id")
					}
					fmt.Fprintln(out, fmtAmount(l.BalanceOf(types.AccountID(args[1]))))
				case "whitelist":
					for _, tok := range l.WhitelistedTokens() {
						fmt.Fprintln(out, tok)
					}
				case "rewards":
					printTokens(out, l.UndistributedRewards())
				case "deposits":
					printTokens(out, l.Deposits())
				case "accounts":
					for _, e := range l.Accounts() {
						fmt.Fprintf(out, "%-32s %s\n", e.Account, fmtAmount(e.Shares))
					}
				case "metadata":
					return printJSON(out, l.Metadata())
				case "events":
					recs, err := a.store.Events(0)
					if err != nil {
						return err
					}
					for _, r := range recs {
						fmt.Fprintf(out, "%6d %s\n", r.Seq, r.Event.Log())
					}
				default:
					return fmt.Errorf("unknown view %q", args[0])
				}
				return nil
			})
		},
	}
}

func newSimulateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <shares>",
		Short: "Show what burning the given shares would pay out now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := amount.Parse(args[0])
			if err != nil {
				return err
			}
			return withApp(v, func(a *app) error {
				payouts, err := a.ledger.SimulateBurn(shares)
				if err != nil {
					return err
				}
				printTokens(cmd.OutOrStdout(), payouts)
				return nil
			})
		},
	}
}

func newExportCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write a share registry snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(v, func(a *app) error {
				reg, err := a.ledger.Registry()
				if err != nil {
					return err
				}
				data, err := revshare.SerializeRegistry(reg)
				if err != nil {
					return err
				}
				if err := os.MkdirAll(filepath.Dir(args[0]), 0700); err != nil {
					return err
				}
				if err := os.WriteFile(args[0], data, 0600); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d accounts, %s shares\n",
					len(reg.Entries), fmtAmount(reg.TotalShares))
				return nil
			})
		},
	}
}

func newImportCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace share balances with a registry snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			reg, err := revshare.DeserializeRegistry(data)
			if err != nil {
				return err
			}
			return withApp(v, func(a *app) error {
				if err := a.ledger.ImportRegistry(reg); err != nil {
					return err
				}
				if err := a.store.Commit(a.ledger.State(), nil); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d accounts, %s shares\n",
					len(reg.Entries), fmtAmount(reg.TotalShares))
				return nil
			})
		},
	}
}

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	var (
		toVersion uint32
		delta     string
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply state migrations",
		Long: `Apply state migrations newer than the stored state version.

--correct-owner-shares registers a migration at --to-version that lowers the
owner's balance by the given amount.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var migrations []ledger.Migration
			if delta != "" {
				d, err := amount.Parse(delta)
				if err != nil {
					return err
				}
				migrations = append(migrations, ledger.CorrectOwnerShares(toVersion, d))
			}
			a, err := openApp(v, migrations...)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := runMigrate(cmd.Context(), a)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&delta, "correct-owner-shares", "", "amount to remove from the owner's balance")
	cmd.Flags().Uint32Var(&toVersion, "to-version", 1, "state version of the correction")
	return cmd
}
