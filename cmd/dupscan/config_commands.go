package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"dupscan/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				if root := cmd.Root(); root != nil {
					path, _ = root.PersistentFlags().GetString("config")
				}
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if root := cmd.Root(); root != nil {
				path, _ = root.PersistentFlags().GetString("config")
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s (exists: %s)\n\n", resolved, yesNo(exists))
			fmt.Fprintf(out, "data_dir:                   %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "log_dir:                    %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "logging:                    %s / %s\n", cfg.Logging.Format, cfg.Logging.Level)
			fmt.Fprintf(out, "catalog.max_files:          %d\n", cfg.Catalog.MaxFiles)
			fmt.Fprintf(out, "catalog.include_hidden:     %s\n", yesNo(cfg.Catalog.IncludeHidden))
			fmt.Fprintf(out, "catalog.extensions:         %s\n", strings.Join(cfg.Catalog.Extensions, " "))
			fmt.Fprintf(out, "similarity_threshold:       %.1f\n", cfg.Detection.SimilarityThreshold)
			fmt.Fprintf(out, "size_tolerance_bytes:       %d\n", cfg.Detection.SizeToleranceBytes)
			fmt.Fprintf(out, "time_tolerance_seconds:     %d\n", cfg.Detection.TimeToleranceSeconds)
			fmt.Fprintf(out, "min_confidence:             %.1f\n", cfg.Detection.MinConfidence)
			fmt.Fprintf(out, "max_results_per_group:      %d\n", cfg.Detection.MaxResultsPerGroup)
			fmt.Fprintf(out, "batch_size:                 %d\n", cfg.Detection.BatchSize)
			fmt.Fprintf(out, "algorithms:                 exact=%s perceptual=%s metadata=%s\n",
				yesNo(cfg.Detection.EnableExact),
				yesNo(cfg.Detection.EnablePerceptual),
				yesNo(cfg.Detection.EnableMetadata))
			fmt.Fprintf(out, "cross_algorithm_validation: %s\n", yesNo(cfg.Detection.CrossAlgorithmValidation))
			return nil
		},
	}
}
