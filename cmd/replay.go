package cmd

import (
	"os"

	"github.com/hansbonini/wiifs/pkg"
	"github.com/spf13/cobra"
)

// replayCmd runs a YAML request script against a fresh session
var replayCmd = &cobra.Command{
	Use:   "replay [script_file] [report_file]",
	Short: "Replay a YAML script of /dev/fs requests",
	Long: `Replay a YAML script of /dev/fs requests.

Each request names a command (open, close, get_stats, create_dir, set_attr,
get_attr, delete_file, rename_file, create_file, count_dir, read_dir,
get_usage) and its arguments. The report lists the status code and decoded
output of every request. Without a report file it is written to stdout.

Example script:
  requests:
    - command: open
    - command: create_file
      path: /tmp/save.tmp
    - command: rename_file
      path: /tmp/save.tmp
      dest: /title/00010000/data/save.bin

Example:
  wiifs replay session.yaml report.yaml`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		script, err := pkg.LoadScript(args[0])
		if err != nil {
			return err
		}

		s, err := pkg.NewSession(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		report, runErr := pkg.NewReplayer(s).Run(script)
		if len(args) == 2 {
			if err := pkg.WriteReport(args[1], report); err != nil {
				return err
			}
		} else if err := pkg.EncodeReport(os.Stdout, report); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
