package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/client-go/kubernetes"

	"github.com/jamestexas/apex-log-parsin/internal/config"
	"github.com/jamestexas/apex-log-parsin/internal/input"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries the state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfg     config.Config
	cfgFile string
	log     *logrus.Logger
	reader  *input.Reader

	stdinPiped func() bool
	kubeClient func(kubeconfig string) (kubernetes.Interface, error)
	runTUI     func(m Model) error
}

func newApp() *app {
	return &app{
		v:          viper.New(),
		cfg:        config.DefaultConfig(),
		log:        logrus.New(),
		reader:     input.NewReader(),
		stdinPiped: input.StdinPiped,
		kubeClient: input.NewKubeClient,
		runTUI:     runProgram,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "apexlog",
		Short: "Parse Salesforce Apex debug logs into call trees",
		Long: `apexlog rebuilds the call tree of Salesforce Apex debug logs: code units,
methods, SOQL, DML, flows, callouts and governor limit usage, with the
time spent in each.

Logs are read from files (gzip allowed), from stdin, or from a
Kubernetes pod's output. A stream of several concatenated logs can be
split on their header lines.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: $HOME/.apexlog.yaml)")
	flags.StringP("output", "o", a.cfg.Output, "output format: json, yaml")
	flags.Bool("pretty", false, "indent JSON output")
	flags.Bool("debug", false, "enable debug logging")
	flags.Int("id-width", a.cfg.IDWidth, "digits in generated node ids")
	flags.String("pod", "", "read the log from this pod's output")
	flags.StringP("namespace", "n", a.cfg.Kube.Namespace, "namespace of --pod")
	flags.String("container", "", "container of --pod")
	flags.String("kubeconfig", "", "kubeconfig used with --pod (default: in-cluster, $KUBECONFIG, ~/.kube/config)")

	a.bind(flags.Lookup("output"), "output")
	a.bind(flags.Lookup("pretty"), "pretty")
	a.bind(flags.Lookup("debug"), "debug")
	a.bind(flags.Lookup("id-width"), "id_width")
	a.bind(flags.Lookup("pod"), "kube.pod")
	a.bind(flags.Lookup("namespace"), "kube.namespace")
	a.bind(flags.Lookup("container"), "kube.container")
	a.bind(flags.Lookup("kubeconfig"), "kube.kubeconfig")

	root.AddCommand(
		newParseCmd(a),
		newTreeCmd(a),
		newSplitCmd(a),
		newViewCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration once flags are parsed and sets up logging.
func (a *app) setup(stderr io.Writer) error {
	config.SetDefaults(a.v)
	home, _ := os.UserHomeDir()
	if err := config.ReadFile(a.v, a.cfgFile, home); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}

	// The log shipper plugin passes its target through the environment.
	cfg.Kube.Pod = getEnvWithFallback("PLUGIN_POD", cfg.Kube.Pod)
	cfg.Kube.Namespace = getEnvWithFallback("PLUGIN_NAMESPACE", cfg.Kube.Namespace)
	cfg.Kube.Container = getEnvWithFallback("PLUGIN_CONTAINER", cfg.Kube.Container)
	a.cfg = cfg

	a.log.SetOutput(stderr)
	a.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	a.log.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		a.log.SetLevel(logrus.DebugLevel)
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.WithField("file", used).Debug("loaded config")
	}
	return nil
}

func (a *app) bind(flag *pflag.Flag, key string) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(errors.Wrapf(err, "binding flag for %s", key))
	}
}

func (a *app) podSource() input.PodSource {
	return input.PodSource{
		Namespace:  a.cfg.Kube.Namespace,
		Pod:        a.cfg.Kube.Pod,
		Container:  a.cfg.Kube.Container,
		Kubeconfig: a.cfg.Kube.Kubeconfig,
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
