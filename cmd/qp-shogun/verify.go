package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qiita-spots/qp-shogun/internal/provision"
	"github.com/qiita-spots/qp-shogun/internal/shell"
	"github.com/qiita-spots/qp-shogun/internal/ui"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the pinned bioinformatics tool versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := provision.Verify(cmd.Context(), shell.Runner{}, provision.PinnedTools)
		for _, r := range results {
			mark := ui.Pass("PASS")
			if !r.OK {
				mark = ui.Fail("FAIL")
			}
			fmt.Printf("%s  %-10s want %-8q  %s\n", mark, r.Tool.Name, r.Tool.Want, firstLine(r.Output))
		}
		return err
	},
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}
