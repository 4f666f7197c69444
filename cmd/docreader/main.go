// Command docreader reads documents from disk or URLs and prints their text,
// chunks or full JSON response.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errReadFailed reports that at least one document could not be read. The
// per-document errors have already been printed.
var errReadFailed = errors.New("one or more documents failed")

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReadFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "docreader",
		Short:         "Extract text and chunks from office documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file (JSON)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	cmd.AddCommand(newReadCommand(flags))
	cmd.AddCommand(newToolsCommand(flags))
	cmd.AddCommand(newFormatsCommand(flags))
	return cmd
}
