package cli

import (
	"context"
	"strconv"

	"github.com/calvinalkan/warehouse/internal/config"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Group: GroupSetup,
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, s.cfg)
		},
	}
}

func execPrintConfig(io *IO, cfg config.Config) error {
	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("max_idx=" + strconv.Itoa(cfg.MaxIdx))
	io.Println("policy=" + cfg.Policy)
	io.Println("oversized_search=" + cfg.OversizedSearch)
	io.Println("log_level=" + cfg.LogLevel)
	io.Println("snapshot.driver=" + cfg.Snapshot.Driver)
	io.Println("snapshot.key=" + cfg.Snapshot.Key)

	if cfg.SnapshotPathAbs != "" {
		io.Println("snapshot.path=" + cfg.SnapshotPathAbs)
	}

	if cfg.Snapshot.DSN != "" {
		// DSNs usually carry a password.
		io.Println("snapshot.dsn=(set)")
	}

	if cfg.Snapshot.Bucket != "" {
		io.Println("snapshot.bucket=" + cfg.Snapshot.Bucket)
	}

	if cfg.Snapshot.Endpoint != "" {
		io.Println("snapshot.endpoint=" + cfg.Snapshot.Endpoint)
	}

	if cfg.Snapshot.AccessKeyID != "" {
		io.Println("snapshot.access_key_id=(set)")
	}

	f := cfg.Filters
	io.Println("filters.reject_expired=" + strconv.FormatBool(isSet(f.RejectExpired)))
	io.Println("filters.unique_ids=" + strconv.FormatBool(isSet(f.UniqueIDs)))

	if f.MaxAmount > 0 {
		io.Println("filters.max_amount=" + strconv.FormatUint(f.MaxAmount, 10))
	}

	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" && len(cfg.Sources.Env) == 0 {
		io.Println("(defaults only)")

		return nil
	}

	if cfg.Sources.Global != "" {
		io.Println("global_config=" + cfg.Sources.Global)
	}

	if cfg.Sources.Project != "" {
		io.Println("project_config=" + cfg.Sources.Project)
	}

	for _, name := range cfg.Sources.Env {
		io.Println("env=" + name)
	}

	return nil
}
