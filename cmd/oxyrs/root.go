package main

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/config"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer"
	"github.com/Carmen-Shannon/oxy-renderstate/engine/renderer/device"
	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	reflector  string

	cfg config.Config
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "oxyrs",
		Short:         "Inspect render-state shaders and materials",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.reflector, "reflector", "", `reflector override ("spirv" or "wgsl")`)

	root.AddCommand(newInspectShaderCommand(opts), newInspectMaterialCommand(opts))
	return root
}

func (o *options) load(cmd *cobra.Command) error {
	o.cfg = config.Default()
	if o.configPath != "" {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		o.cfg = cfg
	}
	if o.logLevel != "" {
		o.cfg.Log.Level = o.logLevel
	}
	if o.reflector != "" {
		o.cfg.Renderer.Reflector = o.reflector
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: common.ParseLogLevel(o.cfg.Log.Level)})
	common.SetLogger(slog.New(handler))
	return nil
}

// newRenderer creates a renderer on a null device reporting the configured uniform alignment.
func (o *options) newRenderer() (renderer.Renderer, error) {
	dev := device.NewNullDevice(o.cfg.Renderer.MinUniformAlignment)
	return renderer.NewRenderer(dev, renderer.WithConfig(o.cfg))
}
