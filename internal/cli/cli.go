package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vk/datajob/internal/app"
)

// Version is set at build time.
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

type rootOptions struct {
	logLevel  string
	logFormat string
	envFiles  []string
	stage     string
	region    string
	account   string
	format    string
	outDir    string
}

// NewRootCmd builds the datajob command tree. Artifacts go to outW, logs
// and errors to errW.
func NewRootCmd(outW, errW io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "datajob [command] [STACK_PATH...]",
		Short: "Compile data pipeline workflows into Step Functions state machines",
		Long: `datajob reads stack files written in HCL, compiles every workflow's
task graph into an ordered chain of single and parallel stages and renders
it as an Amazon States Language definition inside a CloudFormation template.

STACK_PATH is a .hcl file, a directory or a glob pattern. It defaults to
the current directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnvFiles(opts.envFiles)
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringSliceVar(&opts.envFiles, "env-file", nil, "Load environment variables from these files (default .env when present).")
	pf.StringVar(&opts.stage, "stage", "", "Default stage of the stack [$DATAJOB_STAGE].")
	pf.StringVar(&opts.region, "region", "", "Default AWS region [$AWS_DEFAULT_REGION].")
	pf.StringVar(&opts.account, "account", "", "Default AWS account id [$AWS_ACCOUNT_ID].")
	pf.StringVar(&opts.format, "format", "yaml", "Template format. Options: 'yaml' or 'json'.")
	pf.StringVarP(&opts.outDir, "out", "o", "", "Write artifacts to this directory instead of stdout.")

	root.AddCommand(
		newSynthCmd(opts, outW, errW),
		newGraphCmd(opts, outW, errW),
		newPublishCmd(opts, outW, errW),
		newInputCmd(opts, outW, errW),
		newWatchCmd(opts, outW, errW),
		newVersionCmd(outW),
	)
	return root
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCmd(outW, errW)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil && !isExitError(err) && strings.HasPrefix(err.Error(), "unknown command") {
		return usageError(err)
	}
	return err
}

func isExitError(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

// loadEnvFiles loads the given files, or .env when none are given and it
// exists. Variables already set in the environment win.
func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return usageError(fmt.Errorf("loading env files: %w", err))
	}
	return nil
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// newApp validates the merged configuration and builds the application.
func (o *rootOptions) newApp(args []string, outW, errW io.Writer, extra func(*app.Config)) (*app.App, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	env := environ()
	cfg := app.Config{
		Paths:     args,
		Stage:     firstNonEmpty(o.stage, env["DATAJOB_STAGE"]),
		Region:    firstNonEmpty(o.region, env["AWS_DEFAULT_REGION"]),
		Account:   firstNonEmpty(o.account, env["AWS_ACCOUNT_ID"]),
		Env:       env,
		LogFormat: strings.ToLower(o.logFormat),
		LogLevel:  strings.ToLower(o.logLevel),
		OutDir:    o.outDir,
		Format:    strings.ToLower(o.format),
	}
	if extra != nil {
		extra(&cfg)
	}
	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return app.NewApp(outW, errW, validated), nil
}

func newSynthCmd(o *rootOptions, outW, errW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "synth [STACK_PATH...]",
		Short: "Render the CloudFormation template of the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(args, outW, errW, nil)
			if err != nil {
				return err
			}
			return a.Synth(cmd.Context())
		},
	}
}

func newGraphCmd(o *rootOptions, outW, errW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "graph [STACK_PATH...]",
		Short: "Print the compiled stages of every workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(args, outW, errW, nil)
			if err != nil {
				return err
			}
			return a.Graph(cmd.Context())
		},
	}
}

type publishOptions struct {
	natsURL     string
	natsSubject string
	redisURL    string
	redisPrefix string
	socketioURL string
}

func (p *publishOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&p.natsURL, "nats-url", "", "Publish definitions to this NATS server [$NATS_URL].")
	f.StringVar(&p.natsSubject, "nats-subject", "", "Subject prefix for NATS publishing.")
	f.StringVar(&p.redisURL, "redis-url", "", "Store definitions in this Redis server [$REDIS_URL].")
	f.StringVar(&p.redisPrefix, "redis-prefix", "", "Key prefix for Redis publishing.")
	f.StringVar(&p.socketioURL, "socketio-url", "", "Register definitions with this Socket.IO endpoint [$SOCKETIO_URL].")
}

func (p *publishOptions) apply(cfg *app.Config) {
	cfg.NATSURL = firstNonEmpty(p.natsURL, cfg.Env["NATS_URL"])
	cfg.NATSSubject = p.natsSubject
	cfg.RedisURL = firstNonEmpty(p.redisURL, cfg.Env["REDIS_URL"])
	cfg.RedisPrefix = p.redisPrefix
	cfg.SocketIOURL = firstNonEmpty(p.socketioURL, cfg.Env["SOCKETIO_URL"])
}

func newPublishCmd(o *rootOptions, outW, errW io.Writer) *cobra.Command {
	p := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish [STACK_PATH...]",
		Short: "Send every compiled definition to the configured targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(args, outW, errW, p.apply)
			if err != nil {
				return err
			}
			return a.Publish(cmd.Context())
		},
	}
	p.bind(cmd)
	return cmd
}

func newInputCmd(o *rootOptions, outW, errW io.Writer) *cobra.Command {
	var template string
	cmd := &cobra.Command{
		Use:   "input [STACK_PATH...]",
		Short: "Generate an execution input document with unique names",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(args, outW, errW, nil)
			if err != nil {
				return err
			}
			return a.ExecutionInput(cmd.Context(), template)
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "Read the input keys from a synthesized template instead of compiling the stack.")
	return cmd
}

func newWatchCmd(o *rootOptions, outW, errW io.Writer) *cobra.Command {
	var (
		port     int
		debounce time.Duration
		publish  bool
	)
	p := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "watch [STACK_PATH...]",
		Short: "Re-synthesize (or re-publish) whenever a stack file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(args, outW, errW, func(cfg *app.Config) {
				cfg.HealthcheckPort = port
				cfg.Debounce = debounce
				p.apply(cfg)
			})
			if err != nil {
				return err
			}
			action := a.Synth
			if publish {
				action = a.Publish
			}
			return a.Watch(cmd.Context(), action)
		},
	}
	cmd.Flags().IntVar(&port, "healthcheck-port", 0, "Port for the /health and /metrics server. 0 is disabled.")
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Wait this long after the last change before rebuilding.")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish instead of writing the template.")
	p.bind(cmd)
	return cmd
}

func newVersionCmd(outW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(outW, "datajob version %s\n", Version)
		},
	}
}
