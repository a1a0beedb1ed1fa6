package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"privacy-advisor/advisor"
	"privacy-advisor/config"
	"privacy-advisor/kvstore/sqlitestore"
	"privacy-advisor/logging"

	"github.com/spf13/cobra"
)

var (
	checkRelayURL    string
	checkDBPath      string
	checkBypass      bool
	checkRegistrable bool
	checkUserType    string
	checkRegion      string
	checkCopy        bool
	checkTimeout     time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Analyze a site through the relay",
	Long: `Extrai o domínio da URL e mostra a análise. Resultados ficam em cache
local por 7 dias; --bypass força uma análise nova.

--user-type e --region são gravados como preferência para as próximas
execuções.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkRelayURL, "relay", "http://localhost:8080", "Relay base URL")
	checkCmd.Flags().StringVar(&checkDBPath, "db", defaultDBPath(), "Local SQLite store for prefs and cache")
	checkCmd.Flags().BoolVar(&checkBypass, "bypass", false, "Ignore the local cache")
	checkCmd.Flags().BoolVar(&checkRegistrable, "registrable", false, "Reduce the host to its registrable domain (eTLD+1)")
	checkCmd.Flags().StringVar(&checkUserType, "user-type", "", "adult | teen | child (saved)")
	checkCmd.Flags().StringVar(&checkRegion, "region", "", "Region, e.g. US or EU (saved)")
	checkCmd.Flags().BoolVar(&checkCopy, "copy", false, "Print the plain-text summary")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 3*time.Minute, "Request timeout")
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "privacy-advisor.db"
	}
	return filepath.Join(dir, "privacy-advisor", "advisor.db")
}

func runCheck(cmd *cobra.Command, args []string) error {
	domainName, err := advisor.DomainFromURL(args[0], checkRegistrable)
	if err != nil {
		return err
	}

	logLevel := "warn"
	if configPath != "" {
		if cfg, err := config.Load(configPath); err == nil {
			logLevel = cfg.LogLevel
		}
	}
	log, err := logging.New(logLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := os.MkdirAll(filepath.Dir(checkDBPath), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	store, err := sqlitestore.Open(checkDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	if checkUserType != "" || checkRegion != "" {
		if err := advisor.SavePrefs(ctx, store, advisor.Prefs{UserType: checkUserType, Region: checkRegion}); err != nil {
			return err
		}
	}

	adv := advisor.New(store, advisor.NewClient(checkRelayURL, nil), advisor.WithLogger(log))
	res, err := adv.Analyze(ctx, domainName, checkBypass)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if checkCopy {
		fmt.Fprintln(out, advisor.FormatText(res.Domain, res.Record))
		return nil
	}
	fmt.Fprint(out, advisor.Render(res))
	return nil
}
