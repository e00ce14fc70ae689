// Package cmd provides command-line interface functionality for wiifs.
// wiifs emulates the console's /dev/fs NAND filesystem device on top of a
// host directory.
package cmd

import (
	"fmt"
	"os"

	"github.com/hansbonini/wiifs/pkg"
	"github.com/hansbonini/wiifs/pkg/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wiifs",
	Short: "Emulated console NAND filesystem device",
	Long: `wiifs - high-level emulation of the console's /dev/fs device.

Guest requests are answered against a host directory (the NAND root).

Examples:
  wiifs open --disc game.iso
  wiifs replay session.yaml report.yaml
  wiifs stats
  wiifs ls /title/00010000
  wiifs usage /shared2
  wiifs attr /shared2/sys/SYSCONF

Use 'wiifs [command] --help' for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main() and serves as the entry point for command execution.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	registerFlags(rootCmd.PersistentFlags())
}

// registerFlags defines the session flags shared by every command
func registerFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "YAML config file")
	flags.String("root", pkg.DefaultNANDRoot, "host directory backing the emulated NAND")
	flags.String("disc", "", "disc image mounted for the title directory")
	flags.BoolP("verbose", "v", false, "Enable verbose output (show debug messages)")
}

// loadConfig reads the config file, then applies the flags the user set
func loadConfig(cmd *cobra.Command) (pkg.Config, error) {
	filename, err := cmd.Flags().GetString("config")
	if err != nil {
		return pkg.Config{}, fmt.Errorf("error getting config flag: %w", err)
	}
	cfg, err := pkg.LoadConfig(filename)
	if err != nil {
		return cfg, err
	}
	if err := applyFlags(cmd.Flags(), &cfg); err != nil {
		return cfg, err
	}
	common.SetLogOutput(cmd.ErrOrStderr())
	common.SetVerboseMode(cfg.Verbose)
	return cfg, nil
}

// applyFlags overrides cfg with every flag set on the command line
func applyFlags(flags *pflag.FlagSet, cfg *pkg.Config) error {
	var err error
	if flags.Changed("root") {
		if cfg.NANDRoot, err = flags.GetString("root"); err != nil {
			return err
		}
	}
	if flags.Changed("disc") {
		if cfg.DiscImage, err = flags.GetString("disc"); err != nil {
			return err
		}
	}
	if flags.Changed("verbose") {
		if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

// openSession builds a session from flags and runs the open handshake
func openSession(cmd *cobra.Command) (*pkg.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	s, err := pkg.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := s.Open(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
