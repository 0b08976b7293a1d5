package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/noahxzhu/tiffin-client/internal/app"
	"github.com/noahxzhu/tiffin-client/internal/config"
	"github.com/noahxzhu/tiffin-client/internal/logging"
	"github.com/noahxzhu/tiffin-client/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var outputFormats = []string{"text", "json", "yaml"}

// cli carries what every command needs once flags are parsed.
type cli struct {
	cfgFile string
	baseURL string
	output  string

	app    *app.App
	closer io.Closer
}

// newRootCmd builds an independent command tree. The caller closes the
// returned cli once the command has run.
func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}

	root := &cobra.Command{
		Use:   "tiffin",
		Short: "Manage tiffin deliveries from the terminal",
		Long: `tiffin signs you in to the tiffin delivery service, edits your weekly
delivery schedule and holiday dates, and shows delivery history and
dashboard statistics.

Run without a command in a terminal to open the interactive UI.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return cmd.Help()
			}
			return tui.Run(cmd.Context(), c.app)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.cfgFile, "config", "c", "", "config file (default is $HOME/.config/tiffin/config.yaml)")
	flags.StringVar(&c.baseURL, "base-url", "", "backend base URL (overrides api.base_url)")
	flags.StringVarP(&c.output, "output", "o", "text", "output format: text, json or yaml")

	root.AddCommand(
		c.loginCmd(),
		c.signupCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.scheduleCmd(),
		c.schedulesCmd(),
		c.holidayCmd(),
		c.statsCmd(),
		c.deliveriesCmd(),
		c.deliverCmd(),
		c.tuiCmd(),
	)
	return root, c
}

// Execute runs the CLI with ctx as the root context.
func Execute(ctx context.Context) error {
	root, c := newRootCmd()
	defer c.close()
	return root.ExecuteContext(ctx)
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if !slices.Contains(outputFormats, c.output) {
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", c.output)
	}

	v, err := config.NewViper(c.cfgFile)
	if err != nil {
		return err
	}
	if err := v.BindPFlag("api.base_url", cmd.Root().PersistentFlags().Lookup("base-url")); err != nil {
		return fmt.Errorf("bind flag: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: logging disabled: %v\n", err)
		logger, closer = logging.Nop(), nil
	}
	c.closer = closer
	c.app = app.New(cfg, logger)
	logger.Debug("Command started", "command", cmd.CommandPath(), "base_url", cfg.API.BaseURL)
	return nil
}

// close waits for background requests and releases the log file.
func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
	}
	if c.closer != nil {
		_ = c.closer.Close()
	}
}

func (c *cli) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(cmd.Context(), c.app)
		},
	}
}
