package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"modbusgw/pkg/bridge"
	"modbusgw/pkg/config"
	"modbusgw/pkg/models"

	"github.com/spf13/cobra"
)

type invokeOptions struct {
	Payload      string
	Script       string
	Interpreter  string
	BaseDir      string
	ResultPrefix string
	Args         []string
	Timeout      time.Duration
	Validate     bool
}

func newRootCmd() *cobra.Command {
	opts := invokeOptions{}

	cmd := &cobra.Command{
		Use:           "invoke [payload-file]",
		Short:         "Run one Modbus gateway acquisition cycle and print its record",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.LoadConfig(".")
			if err != nil {
				return err
			}
			applyConfigDefaults(cmd, &opts, conf)

			payload, err := readPayload(opts, args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runInvoke(ctx, opts, payload, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Payload, "payload", "p", "", "Configuration payload JSON (overrides the file argument and stdin)")
	cmd.Flags().StringVar(&opts.Script, "script", "", "Gateway script, relative to the base directory")
	cmd.Flags().StringVar(&opts.Interpreter, "interpreter", "", "Interpreter that runs the script")
	cmd.Flags().StringVar(&opts.BaseDir, "base-dir", "", "Directory that relative scripts resolve against")
	cmd.Flags().StringVar(&opts.ResultPrefix, "result-prefix", "", "Marker prefix of the result line")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "Extra argument passed to the script (repeatable)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Kill the gateway process after this long (0 waits)")
	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "Validate the payload before launching the gateway")

	return cmd
}

// applyConfigDefaults fills options the user did not pass on the command line.
func applyConfigDefaults(cmd *cobra.Command, opts *invokeOptions, conf *config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("script") {
		opts.Script = conf.GatewayScript
	}
	if !flags.Changed("interpreter") {
		opts.Interpreter = conf.GatewayInterpreter
	}
	if !flags.Changed("base-dir") {
		opts.BaseDir = conf.GatewayBaseDir
	}
	if !flags.Changed("result-prefix") {
		opts.ResultPrefix = conf.ResultPrefix
	}
	if !flags.Changed("timeout") {
		opts.Timeout = conf.InvokeTimeout()
	}
	if !flags.Changed("validate") {
		opts.Validate = conf.ValidatePayload
	}
}

func readPayload(opts invokeOptions, args []string, stdin io.Reader) (string, error) {
	if opts.Payload != "" {
		return opts.Payload, nil
	}

	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read payload file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read payload from stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("no payload given: pass --payload, a file, or pipe JSON on stdin")
	}
	return string(data), nil
}

func runInvoke(ctx context.Context, opts invokeOptions, payload string, out io.Writer) error {
	if opts.Validate {
		if _, err := models.ValidatePayload(payload); err != nil {
			return err
		}
	}

	gateway := bridge.New(bridge.Options{
		Interpreter:  opts.Interpreter,
		Script:       opts.Script,
		Args:         opts.Args,
		BaseDir:      opts.BaseDir,
		ResultPrefix: opts.ResultPrefix,
		Timeout:      opts.Timeout,
	})

	result, err := gateway.Invoke(ctx, payload)
	if err != nil {
		return err
	}

	encoded, err := bridge.MarshalRecord(result.Record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = fmt.Fprintln(out, string(encoded))
	return err
}
