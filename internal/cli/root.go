package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the swaggerserver CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swaggerserver",
		Short: "Serve, inspect and scaffold HTTP servers from Swagger 2.0 documents",
		Long: "swaggerserver binds the operations of a Swagger 2.0 document to handlers. " +
			"It can serve a document with echo handlers, list and lint its routes, " +
			"and scaffold a Go server project with one handler stub per operation.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.SetFlagErrorFunc(flagUsageError)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")
	cmd.PersistentFlags().String("log-format", "auto", "Log format: auto, text or json")

	for _, sub := range []*cobra.Command{
		newServeCmd(),
		newRoutesCmd(),
		newCheckCmd(),
		newScaffoldCmd(),
		newInitCmd(),
	} {
		sub.SetFlagErrorFunc(flagUsageError)
		cmd.AddCommand(sub)
	}

	return cmd
}

// flagUsageError converts Cobra flag errors (like unknown flags) into usage
// errors that also show the command's help text.
func flagUsageError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}
