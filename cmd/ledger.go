package cmd

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/takeshy/photorelay/internal/fileutil"
	"github.com/takeshy/photorelay/internal/ledger"
)

var (
	ledgerLimit   int
	ledgerPattern string
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the upload ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded items, newest first",
	Args:  cobra.NoArgs,
	RunE:  runLedgerList,
}

var ledgerCheckCmd = &cobra.Command{
	Use:   "check <key|file>...",
	Short: "Check whether keys or local files have been relayed",
	Long: `Check whether items have been relayed. Arguments naming an existing
file are hashed first; anything else is looked up as a key.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLedgerCheck,
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger totals",
	Args:  cobra.NoArgs,
	RunE:  runLedgerStats,
}

func init() {
	ledgerListCmd.Flags().IntVarP(&ledgerLimit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	ledgerListCmd.Flags().StringVarP(&ledgerPattern, "pattern", "P", "", "Regex pattern to filter file names")
	ledgerCmd.AddCommand(ledgerListCmd, ledgerCheckCmd, ledgerStatsCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func openLedger(cmd *cobra.Command) (*ledger.Ledger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return ledger.Open(cfg.DBPath)
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	l, err := openLedger(cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	var re *regexp.Regexp
	if ledgerPattern != "" {
		re, err = regexp.Compile(ledgerPattern)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}

	fetch := ledgerLimit
	if re != nil {
		fetch = 0
	}
	entries, err := l.List(cmd.Context(), fetch)
	if err != nil {
		return err
	}

	var shown []ledger.Entry
	for _, e := range entries {
		if re != nil && !re.MatchString(e.Label) {
			continue
		}
		shown = append(shown, e)
		if ledgerLimit > 0 && len(shown) == ledgerLimit {
			break
		}
	}

	if len(shown) == 0 {
		fmt.Println("No entries")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECORDED\tFILE\tKEY")
	fmt.Fprintln(w, "--------\t----\t---")
	for _, e := range shown {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.RecordedAt.Local().Format(time.DateTime), e.Label, e.Key)
	}
	w.Flush()

	return nil
}

func runLedgerCheck(cmd *cobra.Command, args []string) error {
	l, err := openLedger(cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	for _, arg := range args {
		key := arg
		if info, err := os.Stat(arg); err == nil && info.Mode().IsRegular() {
			key, err = fileutil.CalculateChecksum(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", arg, err)
				continue
			}
		}

		entry, err := l.Get(cmd.Context(), key)
		switch {
		case errors.Is(err, ledger.ErrEntryNotFound):
			fmt.Printf("⊘ %s: not relayed\n", arg)
		case err != nil:
			return err
		default:
			fmt.Printf("✓ %s: recorded as '%s' at %s\n", arg, entry.Label, entry.RecordedAt.Local().Format(time.DateTime))
		}
	}
	return nil
}

func runLedgerStats(cmd *cobra.Command, args []string) error {
	l, err := openLedger(cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := cmd.Context()
	stats, err := l.Stats(ctx)
	if err != nil {
		return err
	}
	today, err := l.CountSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return err
	}

	fmt.Printf("Ledger:\n")
	fmt.Printf("  Recorded:     %d\n", stats.Total)
	fmt.Printf("  Sent:         %d\n", stats.Total-stats.SizeSkipped)
	fmt.Printf("  Too large:    %d\n", stats.SizeSkipped)
	fmt.Printf("  Last 24h:     %d\n", today)
	if !stats.LastEntryAt.IsZero() {
		fmt.Printf("  Last entry:   %s\n", stats.LastEntryAt.Local().Format(time.DateTime))
	}
	return nil
}
