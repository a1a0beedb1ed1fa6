package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "privacy-advisor",
	Short: "Privacy and terms-of-service risk advisor",
	Long: `privacy-advisor resume a política de privacidade e os termos de uso de um
site em um veredito curto.

  serve - sobe o relay HTTP (POST /api/analyze)
  check - analisa um site via relay, com cache local de 7 dias`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (env vars override it)")
	rootCmd.AddCommand(serveCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
