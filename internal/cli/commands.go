// Package cli implements ledgerctl, the operator command line for the stock ledger.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/config"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/database"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/di"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/logger"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/version"
)

// session holds what a command needs once configuration has been loaded.
type session struct {
	cfg       *config.Config
	log       zerolog.Logger
	container *di.Container
}

// open loads configuration and wires the application. Logs go to stderr so that
// stdout only carries command output.
func open(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = "debug"
	}
	log := logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		Output: cmd.ErrOrStderr(),
	})
	logger.SetGlobalLogger(log)

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, log: log, container: container}, nil
}

func (s *session) Close() {
	if err := s.container.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close database")
	}
}

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Stock ledger operator tool",
		Long: `ledgerctl manages a stock ledger database directly.
It reads the same environment variables and .env file as the server.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newAccountCmd())
	rootCmd.AddCommand(newOrderCmd("buy", "Buy shares at the current quote"))
	rootCmd.AddCommand(newOrderCmd("sell", "Sell shares at the current quote"))
	rootCmd.AddCommand(newPortfolioCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newQuoteCmd())
	rootCmd.AddCommand(newReconcileCmd())

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	return rootCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ledgerctl %s\n", version.Version)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				v, err := database.SchemaVersion(ctx, s.container.DB)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
				return nil
			})
		},
	}
}

func newAccountCmd() *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Account management",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register an account",
		Example: `  ledgerctl account create --username alice
  ledgerctl account create --username bob --cash 2500.00`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username, _ := cmd.Flags().GetString("username")
			cashFlag, _ := cmd.Flags().GetString("cash")

			var cash *decimal.Decimal
			if cashFlag != "" {
				d, err := decimal.NewFromString(cashFlag)
				if err != nil {
					return fmt.Errorf("invalid --cash %q: %w", cashFlag, err)
				}
				cash = &d
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				account, err := s.container.AccountService.CreateAccount(ctx, username, cash)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), account)
			})
		},
	}
	createCmd.Flags().String("username", "", "Username of the new account")
	createCmd.Flags().String("cash", "", "Initial cash deposit (defaults to DEFAULT_CASH)")
	_ = createCmd.MarkFlagRequired("username")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				accounts, err := s.container.AccountService.ListAccounts(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), accounts)
			})
		},
	}

	accountCmd.AddCommand(createCmd, listCmd)
	return accountCmd
}

func newOrderCmd(side, short string) *cobra.Command {
	return &cobra.Command{
		Use:   side + " ACCOUNT_ID SYMBOL SHARES",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: shares must be a whole number, got %q", apperrors.ErrInvalidOrder, args[2])
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				execute := s.container.PortfolioService.ExecuteBuy
				if side == "sell" {
					execute = s.container.PortfolioService.ExecuteSell
				}

				result, err := execute(ctx, args[0], args[1], shares)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newPortfolioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio ACCOUNT_ID",
		Short: "Value an account at current quotes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				valuation, err := s.container.PortfolioService.ValuatePortfolio(ctx, args[0])
				if err != nil && !(errors.Is(err, apperrors.ErrPartialValuation) && valuation != nil) {
					return err
				}
				if err != nil {
					s.log.Warn().Err(err).Msg("Valuation is incomplete")
				}
				return printJSON(cmd.OutOrStdout(), valuation)
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history ACCOUNT_ID",
		Short: "Print the transaction history of an account, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				transactions, err := s.container.PortfolioService.ListTransactions(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), transactions)
			})
		},
	}
}

func newQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Look up the current quote of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				q, err := s.container.PortfolioService.Quote(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), q)
			})
		},
	}
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check holdings and cash of every account against the ledger",
		Long: `Replays the ledger of every account and compares it with the stored
holdings and cash balance. Exits non-zero when a discrepancy is found.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				report, err := s.container.ReconcileService.Reconcile(ctx)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if !report.Consistent() {
					return fmt.Errorf("%w: %d discrepancies", apperrors.ErrDataInconsistency, len(report.Discrepancies))
				}
				return nil
			})
		},
	}
}
