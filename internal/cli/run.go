package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/calvinalkan/warehouse/internal/config"

	flag "github.com/spf13/pflag"
)

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. A signal received on it cancels the running command.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("warehouse", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	maxIdx := globals.Int("max-idx", 0, "Rows, shelves per row and zones per shelf")
	policy := globals.String("policy", "", "Placement policy")
	search := globals.String("oversized-search", "", "Oversized search mode (first-fit|nearest)")
	logLevel := globals.String("log-level", "", "Log level (debug|info|warn|error)")
	driver := globals.String("snapshot-driver", "", "Snapshot driver (fs|sqlite|postgres|s3|memory)")
	help := globals.BoolP("help", "h", false, "Show help")

	if len(args) == 0 {
		args = []string{"warehouse"}
	}

	err := globals.Parse(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, commands(nil))

		return 1
	}

	rest := globals.Args()
	if *help || len(rest) == 0 {
		printUsage(out, commands(nil))

		return 0
	}

	if env == nil {
		env = map[string]string{}
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		Overrides: config.Overrides{
			MaxIdx:          *maxIdx,
			Policy:          *policy,
			OversizedSearch: *search,
			LogLevel:        *logLevel,
			SnapshotDriver:  *driver,
		},
		Env: env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, commands(nil))

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	s, err := newSession(cfg, stdin, out, errOut, env)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	defer func() {
		closeErr := s.close()
		if closeErr != nil {
			fprintln(errOut, "error:", closeErr)
		}
	}()

	return s.dispatch(ctx, rest)
}

// dispatch runs one command line and returns its exit code.
func (s *session) dispatch(ctx context.Context, args []string) int {
	name := args[0]

	if name == "help" {
		printUsage(s.out, commands(s))

		return 0
	}

	for _, cmd := range commands(s) {
		if cmd.Name() != name {
			continue
		}

		o := NewIO(s.out, s.errOut)

		code := cmd.Run(ctx, o, args[1:])
		if code != 0 {
			return code
		}

		return o.Finish()
	}

	fprintln(s.errOut, "error: unknown command:", name)
	printUsage(s.errOut, commands(s))

	return 1
}

// commands returns every command bound to s. A nil session is enough for
// help output.
func commands(s *session) []*Command {
	return []*Command{
		InitCmd(s),
		AddCmd(s),
		RemoveCmd(s),
		ListCmd(s),
		FindCmd(s),
		ShowCmd(s),
		ShelfCmd(s),
		ExpiryCmd(s),
		FreeCmd(s),
		CheckCmd(s),
		ExportCmd(s),
		ImportCmd(s),
		StatsCmd(s),
		PrintConfigCmd(s),
		ShellCmd(s),
	}
}

func printUsage(w io.Writer, cmds []*Command) {
	fprintln(w, `warehouse - 3D warehouse slot allocation

Usage: warehouse [options] <command> [args]

Options:
  -C, --cwd <dir>            Run as if started in <dir>
  -c, --config <file>        Use specified config file
  --max-idx <n>              Rows, shelves per row and zones per shelf
  --policy <name>            Placement policy
  --oversized-search <mode>  Oversized search mode (first-fit|nearest)
  --log-level <level>        Log level (debug|info|warn|error)
  --snapshot-driver <name>   Snapshot driver (fs|sqlite|postgres|s3|memory)

Run 'warehouse <command> --help' for the flags of a command.`)

	width := 0
	for _, cmd := range cmds {
		width = max(width, len(cmd.Usage))
	}

	for g := GroupStock; g <= GroupSetup; g++ {
		fprintln(w)
		fprintln(w, g.String()+":")

		for _, cmd := range cmds {
			if cmd.Group == g {
				fprintln(w, cmd.HelpLine(width))
			}
		}
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
