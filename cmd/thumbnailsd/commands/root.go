// Package commands implements the thumbnailsd command line.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...commands.Version=...".
var Version = "dev"

// CLI is the thumbnailsd command tree.
type CLI struct {
	out     io.Writer
	rootCmd *cobra.Command
}

// New builds the command tree. Command output goes to out.
func New(out io.Writer) *CLI {
	rootCmd := &cobra.Command{
		Use:           "thumbnailsd",
		Short:         "Thumbnail transformation lookup daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringP("config", "c", "thumbnailsd.yaml", "Path to the configuration file")

	c := &CLI{out: out, rootCmd: rootCmd}
	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newTokenCmd())
	rootCmd.AddCommand(c.newVersionCmd())
	return c
}

// Execute runs the command selected by the arguments.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs replaces os.Args for the next Execute.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
