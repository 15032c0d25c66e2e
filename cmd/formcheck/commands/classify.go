package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"formcheck/internal/fieldcheck/syntax"
)

func classifyCmd(opts *rootOptions) *cobra.Command {
	var email bool
	cmd := &cobra.Command{
		Use:   "classify <value>",
		Short: "Print the syntax verdict for a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field := opts.cfg.UsernameField()
			if email {
				field = opts.cfg.EmailField()
			}
			field = field.Normalize()

			verdict := syntax.ClassifyField(field, args[0])
			fmt.Fprintln(cmd.OutOrStdout(), verdict)
			return nil
		},
	}
	cmd.Flags().BoolVar(&email, "email", false, "apply the email rules instead of the username rules")
	return cmd
}
