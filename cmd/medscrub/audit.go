package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"meridian-hq/medscrub/pkg/audit"
	"meridian-hq/medscrub/pkg/cli"
	"meridian-hq/medscrub/pkg/config"
	"meridian-hq/medscrub/pkg/vault"
)

var auditFlags struct {
	since   string
	limit   int
	format  string
	decrypt bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query sealed audit records",
	Long: `List, inspect and reindex the per-batch audit records.

The JSON files in the audit directory are canonical; the sqlite index is
derived state used for queries and can be rebuilt at any time.

Subcommands:
  list    - List sealed records from the index
  show    - Print one sealed record, optionally decrypting its PHI payload
  reindex - Rebuild the index from the audit directory`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sealed audit records",
	Long: `List sealed audit records from the index, newest first.

Examples:
  # Last 20 batches
  medscrub audit list

  # Batches since a date, as JSON
  medscrub audit list --since 2026-08-01 --format json`,
	RunE: listAudits,
}

var auditShowCmd = &cobra.Command{
	Use:   "show <audit-file>",
	Short: "Print one sealed audit record",
	Long: `Print a sealed audit record.

With --decrypt the PHI payload is opened with the configured key and the
original field values are printed. Without it only the operational fields
are shown.`,
	Args: cobra.ExactArgs(1),
	RunE: showAudit,
}

var auditReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the index from the audit directory",
	RunE:  reindexAudits,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd, auditShowCmd, auditReindexCmd)

	auditListCmd.Flags().StringVar(&auditFlags.since, "since", "", "only batches sealed on or after this date (YYYY-MM-DD)")
	auditListCmd.Flags().IntVar(&auditFlags.limit, "limit", 20, "maximum rows (0 for all)")
	auditListCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format (text, json)")

	auditShowCmd.Flags().BoolVar(&auditFlags.decrypt, "decrypt", false, "decrypt the PHI payload")
}

func openAuditIndex(cfg *config.Config) (*audit.Index, error) {
	return audit.OpenIndex(&audit.IndexConfig{Path: cfg.Audit.IndexPath})
}

func listAudits(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	var since time.Time
	if auditFlags.since != "" {
		since, err = time.Parse("2006-01-02", auditFlags.since)
		if err != nil {
			return cli.NewCommandError("audit list", fmt.Errorf("invalid --since date: %w", err))
		}
	}

	idx, err := openAuditIndex(cfg)
	if err != nil {
		return cli.NewCommandError("audit list", err)
	}
	defer idx.Close()

	entries, err := idx.List(context.Background(), since, auditFlags.limit)
	if err != nil {
		return cli.NewCommandError("audit list", err)
	}

	if cli.OutputFormat(auditFlags.format) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, entries)
	}

	if len(entries) == 0 {
		fmt.Println("no audit records")
		return nil
	}
	fmt.Printf("%-36s  %-20s  %9s  %6s  %8s  %7s\n",
		"BATCH", "SEALED", "PROCESSED", "ERRORS", "WARNINGS", "ABORTED")
	for _, e := range entries {
		fmt.Printf("%-36s  %-20s  %9d  %6d  %8d  %7v\n",
			e.BatchID,
			e.SealedAt.Format("2006-01-02 15:04:05"),
			e.FilesProcessed,
			e.ErrorCount,
			e.WarningCount,
			e.Aborted,
		)
	}
	return nil
}

func showAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	sealed, err := audit.ReadSealed(args[0])
	if err != nil {
		return cli.NewCommandError("audit show", err)
	}

	fmt.Printf("Batch:           %s\n", sealed.BatchID)
	fmt.Printf("Sealed:          %s\n", sealed.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Files processed: %d\n", sealed.FilesProcessed)
	fmt.Printf("Duration:        %.2fs\n", sealed.DurationSeconds)
	fmt.Printf("Errors:          %d\n", sealed.ErrorCount)
	fmt.Printf("Warnings:        %d\n", sealed.WarningCount)
	fmt.Printf("Aborted:         %v\n", sealed.Aborted)

	if !auditFlags.decrypt {
		fmt.Println("PHI payload:     encrypted (use --decrypt to open)")
		return nil
	}

	v, err := vault.Open(cfg.Vault.KeyPath)
	if err != nil {
		return cli.NewCommandError("audit show", err)
	}
	summaries, err := audit.DecryptPHI(v, sealed)
	if err != nil {
		return cli.NewCommandError("audit show", err)
	}

	fmt.Printf("PHI removed (%d records):\n", len(summaries))
	for _, s := range summaries {
		fmt.Printf("  %-16s %-24s %s\n", s.PatientID, s.PatientName, s.InstitutionName)
	}
	return nil
}

func reindexAudits(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	paths, err := audit.ListSealed(cfg.Directories.Audit)
	if err != nil {
		return cli.NewCommandError("audit reindex", err)
	}

	idx, err := openAuditIndex(cfg)
	if err != nil {
		return cli.NewCommandError("audit reindex", err)
	}
	defer idx.Close()

	indexed := 0
	for _, path := range paths {
		sealed, err := audit.ReadSealed(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
			continue
		}
		if err := idx.Insert(context.Background(), sealed, path); err != nil {
			return cli.NewCommandError("audit reindex", err)
		}
		indexed++
	}
	fmt.Printf("✓ %d audit records indexed\n", indexed)
	return nil
}
