package engine

import (
	"fmt"
	"strconv"
	"strings"
	"tmssync/internal/config"
	"tmssync/internal/flags"
)

// buildReproducibilityCommand renders the command line that repeats this run's
// test selection and sync target. Output flags are left out.
//
// MAINTAINER NOTE: keep in sync with the run/replay flags in internal/cli.
func buildReproducibilityCommand(cfg *config.Config) string {
	args := []string{"tmssync"}
	if len(cfg.Run.Inputs) > 0 {
		args = append(args, "replay")
	} else {
		args = append(args, "run")
	}

	def := config.New()
	if cfg.Run.GoBinary != "" && cfg.Run.GoBinary != def.Run.GoBinary {
		args = append(args, flagArg(flags.FlagGo, cfg.Run.GoBinary))
	}
	for _, a := range cfg.Run.GoTestArgs {
		args = append(args, flagArg(flags.FlagGoTestArg, a))
	}
	if cfg.Run.Dir != "" {
		args = append(args, flagArg(flags.FlagDir, cfg.Run.Dir))
	}
	if cfg.Report.ResultsDir != def.Report.ResultsDir {
		args = append(args, flagArg(flags.FlagResultsDir, cfg.Report.ResultsDir))
	}

	if cfg.TMS.Backend != "" && cfg.TMS.Backend != config.BackendNone {
		args = append(args, flagArg(flags.FlagTMSBackend, cfg.TMS.Backend))
		switch cfg.TMS.Backend {
		case config.BackendGitHub:
			args = append(args, flagArg(flags.FlagTMSRepo, cfg.TMS.Repo))
			if cfg.TMS.Label != def.TMS.Label {
				args = append(args, flagArg(flags.FlagTMSLabel, cfg.TMS.Label))
			}
			if cfg.TMS.BaseURL != "" {
				args = append(args, flagArg(flags.FlagTMSBaseURL, cfg.TMS.BaseURL))
			}
		case config.BackendFile:
			args = append(args, flagArg(flags.FlagTMSFile, cfg.TMS.File))
		case config.BackendSQLite:
			args = append(args, flagArg(flags.FlagTMSDB, cfg.TMS.Database))
		}
		if cfg.TMS.DryRun {
			args = append(args, "--"+flags.FlagDryRun)
		}
	}

	if cfg.Runtime.Concurrency != def.Runtime.Concurrency {
		args = append(args, flagArg(flags.FlagConcurrency, strconv.Itoa(cfg.Runtime.Concurrency)))
	}
	if cfg.Runtime.SyncConcurrency != def.Runtime.SyncConcurrency {
		args = append(args, flagArg(flags.FlagSyncConcurrency, strconv.Itoa(cfg.Runtime.SyncConcurrency)))
	}
	if cfg.Runtime.Timeout != def.Runtime.Timeout {
		args = append(args, flagArg(flags.FlagTimeout, cfg.Runtime.Timeout.String()))
	}
	if cfg.Runtime.SyncTimeout != def.Runtime.SyncTimeout {
		args = append(args, flagArg(flags.FlagSyncTimeout, cfg.Runtime.SyncTimeout.String()))
	}

	if len(cfg.Run.Inputs) > 0 {
		for _, in := range cfg.Run.Inputs {
			args = append(args, shellQuote(in))
		}
	} else {
		for _, pkg := range cfg.Run.Packages {
			args = append(args, shellQuote(pkg))
		}
	}
	return strings.Join(args, " ")
}

func flagArg(name, value string) string {
	return fmt.Sprintf("--%s %s", name, shellQuote(value))
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=@,+", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
