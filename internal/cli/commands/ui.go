package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/cli/config"
	"github.com/leapstack-labs/leapstats/internal/ui"
	"github.com/spf13/cobra"
)

// UIOptions holds options for the ui command.
type UIOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the box score browser",
		Long: `Start a local web server with the box score search page.

Each browser session gets its own result pager: questions, SQL or filters are
sent to the backend, results are paged client-side and further rows are read
ahead in the background.`,
		Example: `  # Start UI on default port
  leapstats ui

  # Start on custom port against another backend
  leapstats ui --port 3001 --backend-url http://stats:3000

  # Start without auto-opening browser, reloading leapstats.yaml on change
  leapstats ui --no-browser --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reload the backend settings when the config file changes")

	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger

	// CLI flags override config file
	port := cfg.UI.Port
	if cmd.Flags().Changed("port") {
		port = opts.Port
	}
	watch := cfg.UI.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}
	autoOpen := cfg.UI.AutoOpen && !opts.NoBrowser

	secret := cfg.UI.SessionSecret
	if secret == "" {
		secret = generateSessionSecret()
	}

	configPath := config.GetConfigFileUsed()
	if watch && configPath == "" {
		cmdCtx.Renderer.Warning("--watch ignored: no config file in use")
	}

	r := cmdCtx.Renderer
	server := ui.NewServer(ui.Config{
		Client:        cmdCtx.Client,
		Port:          port,
		SessionSecret: secret,
		SessionTTL:    cfg.UI.SessionTTL,
		PageSize:      cfg.Pager.PageSize,
		Lookahead:     cfg.Pager.Lookahead,
		Logger:        logger,
		Watch:         watch,
		ConfigPath:    configPath,
		Reload:        reloadClient(cmd, configPath),
		OnListen: func(url string) {
			r.Printf("Serving box scores on %s (backend %s)\n", url, cmdCtx.Client.BaseURL)
			r.Muted("Press Ctrl+C to stop")
			if autoOpen {
				go openBrowser(url)
			}
		},
	})

	return server.Serve(cmd.Context())
}

// reloadClient re-reads the config file, keeping the command's flags on top.
func reloadClient(cmd *cobra.Command, configPath string) func() (*api.Client, error) {
	return func() (*api.Client, error) {
		cfg, err := config.LoadConfig(configPath, cmd.Root().PersistentFlags())
		if err != nil {
			return nil, err
		}
		return newClient(cfg, config.GetLogger(cmd.Context())), nil
	}
}

// generateSessionSecret returns a random per-process cookie key. Pagers live
// in memory, so sessions do not outlive the process anyway.
func generateSessionSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
