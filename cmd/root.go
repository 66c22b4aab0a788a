package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "qwirl",
	Short: "Answer Qwirls and compare wavelengths from your terminal",
	Long: `Qwirl is a social personality quiz: a user authors a set of poll
questions, others answer them, and each pair gets a "wavelength"
compatibility score. This client lets you respond to someone's Qwirl
and check your wavelength with them.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
