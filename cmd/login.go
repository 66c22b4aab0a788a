package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheQwirl/qwirl-client/config"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store your Qwirl API token",
	Long: `Store a Qwirl API token for later commands. Create one under
Settings > API tokens on the web app, then paste it here.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print("Paste your API token: ")
		reader := bufio.NewReader(os.Stdin)
		token, _ := reader.ReadString('\n')
		token = strings.TrimSpace(token)
		if token == "" {
			fmt.Println("❌ No token entered.")
			return
		}

		path := config.TokenPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			fmt.Println("❌ Could not create config directory:", err)
			return
		}
		if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
			fmt.Println("❌ Could not save token:", err)
			return
		}
		fmt.Println("✅ Token saved to", path)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
