package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trustfund-platform/trustfund/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	apiURL    string
	authToken string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trustfund",
	Short: "TrustFund platform CLI",
	Long: `trustfund is the command-line interface for the TrustFund lending platform.

It lets you inspect the hash-chained transaction ledger, verify its
integrity, and browse loans against a running TrustFund API.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.trustfund")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if apiURL == "" {
			apiURL = viper.GetString("api_url")
		}
		if apiURL == "" {
			apiURL = "http://localhost:8080"
		}
		if authToken == "" {
			authToken = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.trustfund/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "TrustFund API base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "session token for authenticated calls (or TOKEN in the config)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(loansCmd)
	rootCmd.AddCommand(versionCmd)
}

// newClient builds an SDK client carrying the session token when present.
func newClient() (*client.Client, error) {
	opts := []client.Option{}
	if authToken != "" {
		opts = append(opts, client.WithBearerToken(authToken))
	}
	return client.New(apiURL, opts...)
}

// ── login ────────────────────────────────────────────────────────────────────

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and print a session token",
	Long: `Login exchanges your credentials for a session token.

The password is read from stdin. Save the printed token under "token:" in
~/.trustfund/config.yaml, or pass it with --token on later calls.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]

		fmt.Print("Password: ")
		stdin := bufio.NewReader(os.Stdin)
		password, err := stdin.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimSpace(password)

		c, err := newClient()
		if err != nil {
			return err
		}
		u, err := c.Login(context.Background(), email, password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		fmt.Printf("\n✓ Logged in as %s (trust score %d)\n\n", u.Email, u.TrustScore)
		fmt.Printf("Token: %s\n", c.Token())
		return nil
	},
}

// ── ledger ───────────────────────────────────────────────────────────────────

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show the ledger chain length and tip hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ov, err := c.LedgerOverview(context.Background())
		if err != nil {
			return fmt.Errorf("ledger overview: %w", err)
		}
		fmt.Printf("Transactions: %d\n", ov.Transactions)
		fmt.Printf("Tip:          %s\n", ov.Tip)
		return nil
	},
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of the full transaction chain",
	Long: `Verify walks the entire ledger, recomputing every transaction's hash from
its recorded fields and the preceding link. Any entry whose stored hashes no
longer hold is reported by ID.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.VerifyLedger(context.Background())
		if err != nil {
			return fmt.Errorf("verify ledger: %w", err)
		}

		if res.Valid {
			fmt.Println("✓ Ledger chain is intact")
			return nil
		}

		fmt.Printf("✗ Ledger chain is BROKEN — %d invalid transaction(s):\n\n", len(res.InvalidIDs))
		for _, id := range res.InvalidIDs {
			fmt.Printf("  %s\n", id)
		}
		os.Exit(1)
		return nil
	},
}

// ── tx ───────────────────────────────────────────────────────────────────────

var (
	txLoanID string
	txUserID string
	txFormat string
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Browse ledger transactions",
}

var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger transactions in append order",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		txs, err := c.Transactions(context.Background(), client.TransactionFilter{
			LoanID: txLoanID,
			UserID: txUserID,
		})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}

		if txFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(txs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tAMOUNT\tLOAN\tCREATED\tHASH")
		for _, tx := range txs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				tx.ID, tx.Type, tx.Amount, tx.LoanID,
				tx.CreatedAt.Format(time.RFC3339), short(tx.CurrHash))
		}
		return w.Flush()
	},
}

var txGetCmd = &cobra.Command{
	Use:   "get <transaction-id>",
	Short: "Show a single ledger transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		tx, err := c.Transaction(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}

		fmt.Printf("ID:        %s\n", tx.ID)
		fmt.Printf("Type:      %s\n", tx.Type)
		fmt.Printf("Amount:    %s\n", tx.Amount)
		fmt.Printf("Loan:      %s\n", tx.LoanID)
		fmt.Printf("User:      %s\n", tx.UserID)
		fmt.Printf("Created:   %s\n", tx.CreatedAt.Format(time.RFC3339))
		fmt.Printf("Prev hash: %s\n", tx.PrevHash)
		fmt.Printf("Curr hash: %s\n", tx.CurrHash)
		return nil
	},
}

func init() {
	txListCmd.Flags().StringVar(&txLoanID, "loan", "", "Filter by loan ID")
	txListCmd.Flags().StringVar(&txUserID, "user", "", "Filter by user ID")
	txListCmd.Flags().StringVar(&txFormat, "format", "text", "Output format: text or json")

	txCmd.AddCommand(txListCmd)
	txCmd.AddCommand(txGetCmd)
}

// ── loans ────────────────────────────────────────────────────────────────────

var loansPending bool

var loansCmd = &cobra.Command{
	Use:   "loans",
	Short: "List loans (yours by default, --pending for open requests)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		ctx := context.Background()
		var loans []client.Loan
		if loansPending {
			loans, err = c.PendingLoans(ctx)
		} else {
			loans, err = c.MyLoans(ctx)
		}
		if err != nil {
			return fmt.Errorf("list loans: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tAMOUNT\tSTATUS\tPURPOSE\tDUE")
		for _, l := range loans {
			due := ""
			if l.DueDate != nil {
				due = l.DueDate.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.ID, l.Amount, l.Status, l.Purpose, due)
		}
		return w.Flush()
	},
}

func init() {
	loansCmd.Flags().BoolVar(&loansPending, "pending", false, "List open loan requests awaiting a lender")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the trustfund CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("trustfund %s\n", version)
	},
}

// short truncates a hash for table display.
func short(h string) string {
	if len(h) > 12 {
		return h[:12] + "…"
	}
	return h
}
