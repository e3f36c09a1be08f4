package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/takeshy/photorelay/internal/config"
)

var (
	Version    = "dev"
	configFile string
	dbPath     string
	botToken   string
	chatID     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:     "photorelay",
	Short:   "Relay new photos and videos to a Telegram chat",
	Version: Version,
	Long: `photorelay watches a local directory tree and a Google Photos library
and posts every new photo, video and GIF to a Telegram chat exactly once.
What has been sent is kept in a SQLite ledger keyed by content, so renames,
restarts and overlapping scans never produce duplicates.`,
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context; in-flight uploads finish before the process exits.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(log.LstdFlags)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file (or set PHOTORELAY_CONFIG env var)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to ledger database, or a postgres:// URL (default: history.db)")
	rootCmd.PersistentFlags().StringVar(&botToken, "bot-token", "", "Telegram bot token (or set TELEGRAM_BOT_TOKEN env var)")
	rootCmd.PersistentFlags().StringVar(&chatID, "chat-id", "", "Telegram chat ID (or set TELEGRAM_CHAT_ID env var)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every directory and already-sent item")
}

// loadConfig merges defaults, .env, the config file, the environment and
// finally any flags the user set explicitly
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		path = os.Getenv("PHOTORELAY_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("bot-token") {
		cfg.BotToken = botToken
	}
	if flags.Changed("chat-id") {
		cfg.ChatID = chatID
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}

	return cfg, nil
}
