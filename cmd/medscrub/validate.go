package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meridian-hq/medscrub/pkg/anonymize/policy"
	"meridian-hq/medscrub/pkg/anonymize/validator"
	"meridian-hq/medscrub/pkg/cli"
	"meridian-hq/medscrub/pkg/config"
)

var validateFlags struct {
	file string
}

var validateCmd = &cobra.Command{
	Use:   "validate [directory]",
	Short: "Re-validate anonymized output",
	Long: `Re-read anonymized records and check them against the field policy.

Without arguments the configured output directory is validated at batch
level (strict PHI check, per-file integrity and directory compliance).
With --file, a single record gets the per-file check.

Examples:
  # Validate the configured output directory
  medscrub validate

  # Validate a specific directory
  medscrub validate /srv/anonymized

  # Validate one record
  medscrub validate --file /srv/anonymized/scan_001.dcm.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.file, "file", "", "validate a single record instead of a directory")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	pol, err := policy.Default().WithOverrides(cfg.Anonymize.Overrides)
	if err != nil {
		return cli.NewConfigError("anonymize.overrides", err.Error())
	}
	v := validator.New(pol, nil)

	if validateFlags.file != "" {
		if !v.ValidateFile(validateFlags.file) {
			return cli.NewCommandError("validate", fmt.Errorf("%s failed validation", validateFlags.file))
		}
		fmt.Printf("✓ %s\n", validateFlags.file)
		return nil
	}

	dir := cfg.Directories.Output
	if len(args) == 1 {
		dir = args[0]
	}
	if !v.ValidateBatch(dir) {
		return cli.NewCommandError("validate", fmt.Errorf("%s failed batch validation", dir))
	}
	fmt.Printf("✓ %s\n", dir)
	return nil
}
