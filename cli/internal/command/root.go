// Package command implements the echobox command line client.
package command

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/itchan-dev/echobox/cli/internal/tokenstore"
	"github.com/itchan-dev/echobox/shared/apiclient"
	"github.com/itchan-dev/echobox/shared/config"
	"github.com/itchan-dev/echobox/shared/logger"
)

const (
	appName               = "echobox"
	defaultGatewayTimeout = 15 * time.Second
)

var ErrNoGateway = errors.New("no gateway configured")

// app carries global flags and lazily loaded state for one invocation.
type app struct {
	gatewayURL   string
	configFolder string
	statePath    string
	verbose      bool
	noColor      bool

	cfg    *config.Config
	cfgErr error
	loaded bool

	now func() time.Time
}

// NewRootCommand builds a fresh command tree. Every call returns independent
// flag state.
func NewRootCommand() *cobra.Command {
	a := &app{now: time.Now}

	root := &cobra.Command{
		Use:   appName,
		Short: "Send anonymous messages and triage the inbox",
		Long: `echobox talks to the message gateway: anyone can send text, images,
documents and voice clips; the admin can list, read and download them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if a.verbose {
				level = "debug"
			}
			logger.InitializeTo(cmd.ErrOrStderr(), level, false)
			if a.noColor {
				color.Disable()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.gatewayURL, "gateway", "", "Gateway base URL (default: gateway_url from config)")
	flags.StringVar(&a.configFolder, "config", "config", "Folder with public.yaml and private.yaml")
	flags.StringVar(&a.statePath, "state", defaultStatePath(), "Session state file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		a.newSendCommand(),
		a.newLoginCommand(),
		a.newLogoutCommand(),
		a.newMessagesCommand(),
		a.newMediaCommand(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, color.Red.Render("error:"), err)
		return 1
	}
	return 0
}

func defaultStatePath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", appName+".db")
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, appName, "state.db")
}

// config loads the config folder once. Commands that can run without it
// ignore the error.
func (a *app) config() (*config.Config, error) {
	if !a.loaded {
		a.cfg, a.cfgErr = config.Load(a.configFolder)
		a.loaded = true
	}
	return a.cfg, a.cfgErr
}

// client builds a gateway client. --gateway wins over the config file.
func (a *app) client() (*apiclient.APIClient, error) {
	cfg, cfgErr := a.config()

	url := a.gatewayURL
	timeout := defaultGatewayTimeout
	strict := false
	if cfgErr == nil {
		if url == "" {
			url = cfg.Public.GatewayURL
		}
		timeout = cfg.Public.GatewayTimeout
		strict = cfg.Public.StrictMarkRead
	}
	if url == "" {
		return nil, fmt.Errorf("%w: pass --gateway or fix config (%v)", ErrNoGateway, cfgErr)
	}

	client := apiclient.New(url, timeout)
	client.StrictMarkRead = strict
	return client, nil
}

func (a *app) openStore() (*tokenstore.Store, error) {
	return tokenstore.Open(a.statePath)
}
