package main

import (
	"strings"

	"github.com/spf13/cobra"

	"respira/internal/api"
	"respira/internal/deps"
	"respira/internal/preflight"
)

type statusReport struct {
	Server       string                 `json:"server"`
	Daemon       api.CheckResult        `json:"daemon"`
	Dependencies []api.DependencyStatus `json:"dependencies"`
	Checks       []api.CheckResult      `json:"checks"`
	Inference    api.InferenceStatus    `json:"inference"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check local prerequisites and daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			server := ctx.serverURL()

			depStatuses := preflight.CheckSystemDeps(cfg)
			checks := preflight.RunAll(cfg)
			daemon := preflight.CheckDaemon(cmd.Context(), server)

			if jsonOutput {
				return writeJSON(cmd, statusReport{
					Server:       server,
					Daemon:       toCheckResult(daemon),
					Dependencies: api.FromDependencyStatuses(depStatuses),
					Checks:       toCheckResults(checks),
					Inference: api.InferenceStatus{
						Command:        cfg.Inference.Command,
						Args:           cfg.InferenceArgs(),
						OutputMode:     cfg.Inference.OutputMode,
						TimeoutSeconds: cfg.Inference.TimeoutSeconds,
					},
				})
			}

			p := newStatusPrinter(cmd.OutOrStdout())

			p.section("Daemon")
			p.check(daemon.Name, daemon.Passed, statusWarn, daemon.Detail)

			p.section("Inference")
			for _, dep := range depStatuses {
				p.check(dep.Name, dep.Available, statusError, dependencyDetail(dep))
			}
			if missing := deps.Missing(depStatuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, dep := range missing {
					names = append(names, dep.Name)
				}
				p.line("Missing", statusWarn, strings.Join(names, ", ")+" (predictions will fail until fixed)")
			}
			p.line("Output mode", statusInfo, cfg.Inference.OutputMode)
			timeout := "disabled"
			if cfg.Inference.TimeoutSeconds > 0 {
				timeout = cfg.InferenceTimeout().String()
			}
			p.line("Timeout", statusInfo, timeout)

			p.section("Local checks")
			for _, check := range checks {
				p.check(check.Name, check.Passed, statusError, check.Detail)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	return cmd
}

func dependencyDetail(dep deps.Status) string {
	if dep.Available && dep.Detail == "" {
		return dep.Command
	}
	return dep.Detail
}

func toCheckResult(r preflight.Result) api.CheckResult {
	return api.CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail}
}

func toCheckResults(results []preflight.Result) []api.CheckResult {
	out := make([]api.CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, toCheckResult(r))
	}
	return out
}
