package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/joeycumines/go-reactor/promreactor"
	"github.com/joeycumines/logiface"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var (
	flagConfig = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   defaultConfigPath,
		Usage:   "path to a YAML config file.",
		EnvVars: []string{"REACTOR_RUN_CONFIG"},
	}
	flagLogLevel = &cli.StringFlag{
		Name:    "log-level",
		Aliases: []string{"l"},
		Usage:   "minimum log level, e.g. debug, info, warning, err.",
		EnvVars: []string{"REACTOR_RUN_LOG_LEVEL"},
		Action: func(c *cli.Context, s string) error {
			_, err := parseLevel(s)
			return err
		},
	}
	flagMetricsAddr = &cli.StringFlag{
		Name:    "metrics-addr",
		Aliases: []string{"m"},
		Usage:   "address to serve prometheus metrics on, disabled if empty.",
		EnvVars: []string{"REACTOR_RUN_METRICS_ADDR"},
	}
	flagModuleName = &cli.StringFlag{
		Name:    "module-name",
		Usage:   "name scripts require the reactor module by.",
		EnvVars: []string{"REACTOR_RUN_MODULE_NAME"},
	}
)

// Wrapper is the reactor-run command line application.
type Wrapper struct {
	app    *cli.App
	stdout io.Writer
	stderr io.Writer

	// state of the running command, see before
	ctx       context.Context
	stop      context.CancelFunc
	cfg       *config
	logger    *logiface.Logger[logiface.Event]
	collector *promreactor.Collector
	metrics   *metricsServer
}

func NewWrapper() *Wrapper {
	wrapper := &Wrapper{
		app: &cli.App{
			Name:  "reactor-run",
			Usage: "run JavaScript against a reactor event loop",
		},
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	wrapper.withFlags()
	wrapper.withCommands()
	wrapper.app.Before = wrapper.before
	wrapper.app.After = wrapper.after
	return wrapper
}

func (wrapper *Wrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *Wrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagConfig,
		flagLogLevel,
		flagMetricsAddr,
		flagModuleName,
	}
}

func (wrapper *Wrapper) withCommands() {
	wrapper.app.Commands = []*cli.Command{
		{
			Name:      "run",
			Usage:     "run a script until its loops return",
			ArgsUsage: "<script.js>",
			Action:    wrapper.runAction,
		},
		{
			Name:   "repl",
			Usage:  "evaluate lines interactively",
			Action: wrapper.replAction,
		},
	}
}

func (wrapper *Wrapper) before(c *cli.Context) error {
	cfg, err := loadConfig(c.String(flagConfig.Name))
	if err != nil {
		return err
	}
	if c.IsSet(flagLogLevel.Name) {
		cfg.LogLevel = c.String(flagLogLevel.Name)
	}
	if c.IsSet(flagMetricsAddr.Name) {
		cfg.MetricsAddr = c.String(flagMetricsAddr.Name)
	}
	if c.IsSet(flagModuleName.Name) {
		cfg.ModuleName = c.String(flagModuleName.Name)
	}
	wrapper.cfg = cfg

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	wrapper.logger = newLogger(wrapper.stderr, level)

	wrapper.ctx, wrapper.stop = signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)

	if cfg.MetricsAddr != "" {
		wrapper.collector = promreactor.NewCollector("")
		wrapper.metrics, err = newMetricsServer(cfg.MetricsAddr, wrapper.collector, wrapper.logger)
		if err != nil {
			return errors.Wrap(err, "metrics server")
		}
		wrapper.metrics.start()
	}

	return nil
}

func (wrapper *Wrapper) after(c *cli.Context) error {
	if wrapper.metrics != nil {
		wrapper.metrics.shutdown()
	}
	if wrapper.stop != nil {
		wrapper.stop()
	}
	return nil
}

func (wrapper *Wrapper) newEnv() (*env, error) {
	return newEnv(wrapper.ctx, wrapper.cfg, wrapper.logger, wrapper.collector)
}

func (wrapper *Wrapper) runAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("missing script path")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read script")
	}

	e, err := wrapper.newEnv()
	if err != nil {
		return err
	}

	wrapper.logger.Debug().Str("script", path).Log("running script")
	if _, err := e.run(path, string(src)); err != nil {
		return err
	}
	return nil
}

func (wrapper *Wrapper) replAction(c *cli.Context) error {
	e, err := wrapper.newEnv()
	if err != nil {
		return err
	}

	rlConfig := &readline.Config{
		Prompt: "> ",
	}
	if home, err := homedir.Dir(); err == nil {
		rlConfig.HistoryFile = filepath.Join(home, ".reactor-run_history")
	}
	rl, err := readline.NewEx(rlConfig)
	if err != nil {
		return errors.Wrap(err, "readline")
	}
	defer rl.Close()

	return e.repl(rl, wrapper.stdout)
}
