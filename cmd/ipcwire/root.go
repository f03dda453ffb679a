package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bjaus/ipcwire"
	"github.com/bjaus/ipcwire/config"
	"github.com/bjaus/ipcwire/internal/jsoncodec"
	"github.com/bjaus/ipcwire/ipc"
	"github.com/bjaus/ipcwire/logging"
	"github.com/bjaus/ipcwire/metrics"
	"github.com/bjaus/ipcwire/tracing"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
)

type globalFlags struct {
	configPath string
	sender     string
	metrics    bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "ipcwire",
		Short:         "Boot the ipcwire demo application and talk to it",
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&flags.sender, "sender", "renderer", "sender name stamped on events")
	cmd.PersistentFlags().BoolVar(&flags.metrics, "metrics", false, "print dispatch metrics when done")

	cmd.AddCommand(newRoutesCommand(flags))
	cmd.AddCommand(newInvokeCommand(flags))
	cmd.AddCommand(newSendCommand(flags))

	return cmd
}

func newRoutesCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the demo routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := startSession(flags)
			if err != nil {
				return err
			}
			defer s.close()

			for _, r := range s.demo.app.Routes() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-7s %s.%s\n", r.Path, r.Mode, r.Controller, r.Method)
			}
			return nil
		},
	}
}

func newInvokeCommand(flags *globalFlags) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "invoke <channel> [json-payload]",
		Short: "Invoke a channel and print the reply",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayload(args[1:])
			if err != nil {
				return err
			}

			s, err := startSession(flags)
			if err != nil {
				return err
			}
			defer s.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := s.bus.Invoke(ctx, args[0], payload)
			if err != nil {
				return err
			}
			out, err := jsoncodec.Marshal(res)
			if err != nil {
				return fmt.Errorf("encode reply: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return s.report(cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "reply timeout")
	return cmd
}

func newSendCommand(flags *globalFlags) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "send <channel> [json-payload]",
		Short: "Send a fire-and-forget message",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayload(args[1:])
			if err != nil {
				return err
			}

			s, err := startSession(flags)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.bus.Send(cmd.Context(), args[0], payload); err != nil {
				return err
			}
			time.Sleep(wait)
			fmt.Fprintf(cmd.OutOrStdout(), "sent to %s\n", args[0])
			return s.report(cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 100*time.Millisecond, "time to wait for delivery")
	return cmd
}

func parsePayload(args []string) (any, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, nil
	}
	var payload any
	if err := jsoncodec.Unmarshal([]byte(args[0]), &payload); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	return payload, nil
}

// session is a booted demo application on a bus.
type session struct {
	logger   *zap.Logger
	bus      *ipc.Bus
	demo     *demo
	registry *prometheus.Registry
}

func startSession(flags *globalFlags) (*session, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	opts := append([]ipcwire.Option{ipcwire.WithConfig(cfg)}, tracing.Options(nil)...)

	var registry *prometheus.Registry
	if flags.metrics {
		registry = prometheus.NewRegistry()
		col, err := metrics.NewCollector(registry)
		if err != nil {
			return nil, err
		}
		opts = append(opts, col.Options()...)
	}
	opts = append(opts, ipcwire.WithLogger(logger))

	s := &session{
		logger:   logger,
		bus:      ipc.New(ipc.WithLogger(logger), ipc.WithSender(flags.sender)),
		demo:     newDemo(logger, opts...),
		registry: registry,
	}
	if err := s.demo.start(s.bus); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) close() {
	if err := s.bus.Close(); err != nil {
		s.logger.Error("close bus", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// report prints the dispatch counters when metrics are enabled.
func (s *session) report(w io.Writer) error {
	if s.registry == nil {
		return nil
	}
	families, err := s.registry.Gather()
	if err != nil {
		return err
	}

	var lines []string
	for _, mf := range families {
		if mf.GetName() != "ipcwire_dispatch_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}
