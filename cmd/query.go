package cmd

import (
	"fmt"

	"github.com/hansbonini/wiifs/pkg/ipc"
	"github.com/spf13/cobra"
)

// statsCmd prints the GET_STATS answer
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the filesystem statistics reported to guests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		words, result, err := s.Client().GetStats()
		if err := checkResult("GET_STATS", result, err); err != nil {
			return err
		}
		for i, word := range words {
			fmt.Printf("word[%d] = 0x%08x\n", i, word)
		}
		return nil
	},
}

// lsCmd lists an emulated directory through READ_DIR
var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List an emulated NAND directory",
	Long: `List an emulated NAND directory through READ_DIR.

Example:
  wiifs ls /title/00010000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		names, result, err := s.Client().ReadDir(args[0], 0)
		if err := checkResult("READ_DIR", result, err); err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

// usageCmd prints the GETUSAGE answer
var usageCmd = &cobra.Command{
	Use:   "usage [path]",
	Short: "Print block and inode usage of an emulated directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		usage, result, err := s.Client().GetUsage(args[0])
		if err := checkResult("GETUSAGE", result, err); err != nil {
			return err
		}
		fmt.Printf("Blocks: %d\nInodes: %d\n", usage.Blocks, usage.Inodes)
		return nil
	},
}

// attrCmd prints the GET_ATTR answer
var attrCmd = &cobra.Command{
	Use:   "attr [path]",
	Short: "Print the attributes reported for an emulated path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		a, result, err := s.Client().GetAttr(args[0])
		if err := checkResult("GET_ATTR", result, err); err != nil {
			return err
		}
		fmt.Printf("Path: %s\n", a.Path)
		fmt.Printf("Owner: 0x%08x Group: 0x%04x\n", a.OwnerID, a.GroupID)
		fmt.Printf("Permissions: owner=%d group=%d other=%d\n", a.OwnerPerm, a.GroupPerm, a.OtherPerm)
		fmt.Printf("Attributes: 0x%02x\n", a.Attribs)
		return nil
	},
}

func checkResult(name string, result ipc.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	if result != ipc.ResultOK {
		return fmt.Errorf("%s returned %s (%d)", name, result, int32(result))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(attrCmd)
}
