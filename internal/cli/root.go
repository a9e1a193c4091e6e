package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/samvad-hq/singly-connect/internal/app"
	"github.com/samvad-hq/singly-connect/internal/config"
	"github.com/samvad-hq/singly-connect/internal/logger"
	"github.com/spf13/cobra"
)

var version = "dev"

// runtime carries what every subcommand needs once PersistentPreRunE ran.
type runtime struct {
	loadConfig func() (*config.Config, error)
	newClient  func(*config.Config, logger.Logger) (*app.Client, error)

	client *app.Client
}

// Execute runs the singly command tree with os-level arguments.
func Execute(ctx context.Context, stdout io.Writer) error {
	rt := &runtime{}
	root := newRootCmd(rt)
	root.SetOut(stdout)
	defer rt.close()
	return root.ExecuteContext(ctx)
}

func (rt *runtime) close() {
	if rt.client != nil {
		_ = rt.client.Close()
		rt.client = nil
	}
	_ = logger.Close()
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) { version = v }

func newRootCmd(rt *runtime) *cobra.Command {
	if rt.loadConfig == nil {
		rt.loadConfig = config.Load
	}
	if rt.newClient == nil {
		rt.newClient = func(cfg *config.Config, log logger.Logger) (*app.Client, error) {
			return app.NewClient(cfg, log)
		}
	}

	root := &cobra.Command{
		Use:   "singly",
		Short: "Call the Singly API from the command line",
		Long: `singly sends requests to the Singly API and prints the JSON response.

Get started:
  singly token set TOKEN          Store an access token
  singly call /profile            Fetch the current profile
  singly call /types/photos -p limit=5 --query 0.data`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rt.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if _, err := logger.Init(cfg.LogLevel); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger.DebugObj("singly starting", "config", map[string]any{
				"api_base_url": cfg.APIBaseURL,
				"storage_type": cfg.StorageType,
				"http_timeout": cfg.HTTPTimeout.String(),
			})

			client, err := rt.newClient(cfg, logger.Default())
			if err != nil {
				return fmt.Errorf("init client: %w", err)
			}
			rt.client = client
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newCallCmd(rt), newTokenCmd(rt))
	return root
}
