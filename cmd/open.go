package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// openCmd bootstraps the NAND root the way a guest open of /dev/fs does
var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open /dev/fs and prepare the NAND root",
	Long: `Open /dev/fs and prepare the NAND root.

The tmp directory is cleared and recreated. With a valid disc image the
per-title data directory is created as well.

Example:
  wiifs open --root ./User/Wii --disc game.iso`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return fmt.Errorf("failed to open /dev/fs: %w", err)
		}
		defer s.Close()

		fmt.Printf("NAND root: %s\n", s.Device().Paths().Root())
		if header := s.DiscHeader(); header != nil {
			fmt.Printf("Disc: %s %s\n", header.GameID[:], header.GameTitle)
		}
		if dir := s.Device().TitleDirectory(); dir != "" {
			fmt.Printf("Title directory: %s\n", dir)
		} else {
			fmt.Println("No disc mounted, title directory not created")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
}
