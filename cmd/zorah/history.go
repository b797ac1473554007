package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/zorah/internal/config"
	"github.com/nao1215/zorah/internal/database"
)

// errNoArchive is returned by history and compare before any run was saved.
var errNoArchive = errors.New("no archived runs found (crawl with --save first)")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [scope-domain]",
		Short: "List archived crawl runs",
		Long: `History lists the runs archived with 'zorah crawl --save' or by 'zorah serve'.

Without an argument it lists every archived scope domain. With a scope
domain it lists that domain's runs, newest first. Run IDs can be passed
to 'zorah compare --with-run'.

Examples:
  # List archived scope domains
  zorah history

  # List the runs of one domain
  zorah history example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	addArchiveFlags(cmd)
	return cmd
}

// addArchiveFlags registers the flags of commands that only read the
// archive.
func addArchiveFlags(cmd *cobra.Command) {
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run archive")
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	db, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listScopeDomains(cmd, db, out)
	}
	return listRuns(cmd, db, out, args[0])
}

// openArchive opens an existing archive read-write without creating it.
func openArchive(cmd *cobra.Command) (*database.CrawlDB, error) {
	v, err := newViper(cmd)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(v.GetString("db-dir"), database.Options{EnableWAL: true})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return nil, errNoArchive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return db, nil
}

func listScopeDomains(cmd *cobra.Command, db *database.CrawlDB, out io.Writer) error {
	domains, err := db.ListScopeDomains(cmd.Context())
	if err != nil {
		return err
	}
	if len(domains) == 0 {
		return errNoArchive
	}

	fmt.Fprintf(out, "Archived scope domains (%d):\n\n", len(domains))
	for _, d := range domains {
		fmt.Fprintf(out, "  %s\n", d)
	}
	fmt.Fprintln(out, "\nUse 'zorah history <scope-domain>' to list its runs.")
	return nil
}

func listRuns(cmd *cobra.Command, db *database.CrawlDB, out io.Writer, scopeDomain string) error {
	runs, err := db.GetHistory(cmd.Context(), scopeDomain)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return fmt.Errorf("no archived runs for %s", scopeDomain)
	}

	fmt.Fprintf(out, "Runs for %s (%d):\n\n", scopeDomain, len(runs))

	tbl := table.New("ID", "Started", "Duration", "Records", "Blocked", "Errors", "Status").WithWriter(out)
	if !color.NoColor {
		tbl.WithHeaderFormatter(color.New(color.FgCyan, color.Underline).SprintfFunc())
	}
	for _, r := range runs {
		status := "complete"
		if r.Interrupted {
			status = "interrupted"
		}
		tbl.AddRow(
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			r.Total,
			r.Blocked,
			r.Errors,
			status,
		)
	}
	tbl.Print()

	fmt.Fprintf(out, "\nUse 'zorah compare %s' to compare the latest two runs.\n", scopeDomain)
	return nil
}
