package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheQwirl/qwirl-client/config"
	"github.com/TheQwirl/qwirl-client/internal/api"
)

var wavelengthCmd = &cobra.Command{
	Use:   "wavelength <username>",
	Short: "Show your current wavelength with another user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if cfg.Token == "" {
			fmt.Println("❌ Not logged in. Run `qwirl login` first.")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client := api.NewClient(cfg.APIBaseURL, cfg.Token)
		result, err := client.GetWavelength(ctx, args[0])
		if err != nil {
			fmt.Println("❌ Could not fetch wavelength:", err)
			return
		}
		fmt.Printf("🌊 Your wavelength with %s: %d%%\n", args[0], result.WavelengthScore)
	},
}

func init() {
	rootCmd.AddCommand(wavelengthCmd)
}
