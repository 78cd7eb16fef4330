package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/campus-music/campus-music-sub001/internal/app/bootstrap"
	"github.com/campus-music/campus-music-sub001/internal/domain"
)

var errDriftDetected = errors.New("wallet drift detected")

// ledgerOpener resolves the ledger a command runs against.
type ledgerOpener func(ctx context.Context, cfg bootstrap.Config) (*bootstrap.Ledger, error)

type ledgerCLI struct {
	configPath string
	open       ledgerOpener
}

func main() {
	if err := newRootCmd(bootstrap.OpenLedger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(open ledgerOpener) *cobra.Command {
	cli := &ledgerCLI{open: open}
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operator tooling for the support ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cli.configPath, "config", "configs/default.yaml", "Path to the service config file")

	rootCmd.AddCommand(cli.migrateCmd())
	rootCmd.AddCommand(cli.walletCmd())
	rootCmd.AddCommand(cli.supportsCmd())
	rootCmd.AddCommand(cli.reconcileCmd())
	return rootCmd
}

func (c *ledgerCLI) withLedger(cmd *cobra.Command, fn func(ctx context.Context, cfg bootstrap.Config, ledger *bootstrap.Ledger) error) error {
	cfg, err := bootstrap.LoadLedgerConfig(c.configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	ledger, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()
	return fn(ctx, cfg, ledger)
}

func (c *ledgerCLI) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply ledger schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(ctx context.Context, _ bootstrap.Config, ledger *bootstrap.Ledger) error {
				if err := ledger.Migrate(ctx); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func (c *ledgerCLI) walletCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wallet [artist_id]",
		Short: "Show an artist's wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(ctx context.Context, cfg bootstrap.Config, ledger *bootstrap.Ledger) error {
				wallet, err := ledger.Store.GetWallet(ctx, args[0])
				if errors.Is(err, domain.ErrNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "no wallet for artist %s\n", args[0])
					return nil
				}
				if err != nil {
					return err
				}
				currency := strings.ToUpper(cfg.LedgerCurrency)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Artist:          %s\n", wallet.ArtistID)
				fmt.Fprintf(out, "Wallet:          %s\n", wallet.WalletID)
				fmt.Fprintf(out, "Total received:  %s %s\n", domain.FormatMinorUnits(wallet.TotalReceived, cfg.CurrencyExponent), currency)
				fmt.Fprintf(out, "Balance:         %s %s\n", domain.FormatMinorUnits(wallet.Balance, cfg.CurrencyExponent), currency)
				fmt.Fprintf(out, "Updated:         %s\n", wallet.UpdatedAt.Format(time.RFC3339))
				if err := wallet.CheckInvariant(); err != nil {
					fmt.Fprintf(out, "WARNING: %v\n", err)
				}
				return nil
			})
		},
	}
}

func (c *ledgerCLI) supportsCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "supports [artist_id]",
		Short: "List an artist's settled supports, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(ctx context.Context, cfg bootstrap.Config, ledger *bootstrap.Ledger) error {
				if limit <= 0 {
					limit = cfg.DefaultSupportPageSize
				}
				records, err := ledger.Store.ListSupportsByArtist(ctx, args[0], limit, offset)
				if err != nil {
					return err
				}
				return printSupports(cmd, cfg, records)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	return cmd
}

func printSupports(cmd *cobra.Command, cfg bootstrap.Config, records []domain.SupportRecord) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tTRANSACTION\tSUPPORTER\tAMOUNT\tMESSAGE")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format(time.RFC3339),
			r.TransactionID,
			r.SupporterID,
			domain.FormatMinorUnits(r.Amount, cfg.CurrencyExponent),
			r.Message,
		)
	}
	return w.Flush()
}

func (c *ledgerCLI) reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Compare wallet totals against the sum of settled supports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(ctx context.Context, cfg bootstrap.Config, ledger *bootstrap.Ledger) error {
				drift, err := ledger.Store.ReconcileWallets(ctx)
				if err != nil {
					return err
				}
				return reportDrift(cmd, cfg, drift)
			})
		},
	}
}

func reportDrift(cmd *cobra.Command, cfg bootstrap.Config, drift []domain.WalletDiscrepancy) error {
	out := cmd.OutOrStdout()
	if len(drift) == 0 {
		fmt.Fprintln(out, "all wallets reconcile")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ARTIST\tTOTAL_RECEIVED\tBALANCE\tSUPPORT_SUM")
	for _, d := range drift {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			d.ArtistID,
			domain.FormatMinorUnits(d.TotalReceived, cfg.CurrencyExponent),
			domain.FormatMinorUnits(d.Balance, cfg.CurrencyExponent),
			domain.FormatMinorUnits(d.SupportSum, cfg.CurrencyExponent),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return fmt.Errorf("%w: %d wallet(s)", errDriftDetected, len(drift))
}
