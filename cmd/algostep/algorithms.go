package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/algostep-go/viz"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "list the available algorithms",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		writeAlgorithms(cmd.OutOrStdout())
	},
}

var pseudocodeCmd = &cobra.Command{
	Use:   "pseudocode <algorithm>",
	Short: "print an algorithm's pseudocode listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		alg, err := viz.ParseAlgorithm(args[0])
		if err != nil {
			return err
		}
		writePseudocode(cmd.OutOrStdout(), alg)
		return nil
	},
}
