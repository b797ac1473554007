package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nao1215/zorah/internal/config"
	"github.com/nao1215/zorah/internal/log"
)

// envPrefix prefixes every environment variable zorah reads, so
// --max-pages can also be set as ZORAH_MAX_PAGES.
const envPrefix = "ZORAH"

// NewRootCmd creates the root command for zorah.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zorah",
		Short: "Scoped web crawler that fingerprints CDNs and WAFs",
		Long: `zorah crawls a web site breadth-first without leaving its registrable
domain. Every visited URL is recorded as a Page, File, Redirect, Error or
Blocked response, together with the CDN and WAF vendors detected from
the response headers, cookies and body.

Every flag can also be set through an environment variable named
ZORAH_<FLAG>, for example ZORAH_MAX_PAGES=50.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newViper binds the command's flags and ZORAH_* environment variables.
// A flag set on the command line wins over the environment, which wins
// over the flag default.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	if f := cmd.Root().PersistentFlags().Lookup("verbose"); f != nil {
		if err := v.BindPFlag("verbose", f); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}
	return v, nil
}

// setupLogger creates the secure logger every command logs through.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}
