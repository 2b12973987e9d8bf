package cmd

import (
	"github.com/spf13/cobra"

	"github.com/isometry/corpdir/internal/config"
)

var sampleOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and generate configuration",
}

var configSampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a starter configuration file",
	Long: `Write a starter configuration file to fill in. With --preset the
sample carries that deployment's settings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteSample(sampleOutput, cfgPreset); err != nil {
			return err
		}
		return printJSON(map[string]string{"written": sampleOutput})
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and report warnings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, cfgPreset)
		if err != nil {
			return err
		}
		result := map[string]any{
			"valid":  true,
			"config": cfg.Summary(),
		}
		if warnings := cfg.Warnings(); len(warnings) > 0 {
			result["warnings"] = warnings
		}
		return printJSON(result)
	},
}

func init() {
	configSampleCmd.Flags().StringVarP(&sampleOutput, "output", "o", "corpdir.json", "where to write the sample")

	configCmd.AddCommand(configSampleCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
