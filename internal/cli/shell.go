package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	flag "github.com/spf13/pflag"
)

const (
	shellPrompt  = "warehouse> "
	historyFile  = ".warehouse_history"
	shellExitCmd = "exit"
)

var errUnclosedQuote = errors.New("unclosed quote")

// ShellCmd returns the shell command.
func ShellCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Group: GroupSetup,
		Examples: []string{
			"shell < restock.txt",
		},
		Short: "Run commands interactively",
		Long: `Read commands line by line and run them against one loaded warehouse.

The placement policy keeps its state between lines, so round-robin policies
continue where the last placement left off. Every change is still saved.
Type 'help' for the command list and 'exit', 'quit' or 'q' to leave.`,
		Exec: func(ctx context.Context, _ *IO, args []string) error {
			if len(args) > 0 {
				return ErrArgsExtra
			}

			if s.inShell {
				return ErrNestedShell
			}

			if s.stdin == nil {
				return fmt.Errorf("%w: no input", ErrArgsMissing)
			}

			s.inShell = true
			defer func() { s.inShell = false }()

			if f, ok := s.stdin.(*os.File); ok && f == os.Stdin {
				return runInteractive(ctx, s)
			}

			return runScript(ctx, s, s.stdin)
		},
	}
}

// runInteractive reads lines with editing and history.
func runInteractive(ctx context.Context, s *session) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var matches []string

		for _, name := range shellWords() {
			if strings.HasPrefix(name, prefix) {
				matches = append(matches, name)
			}
		}

		return matches
	})

	history := historyPath(s.env)
	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = line.ReadHistory(f)
			_ = f.Close()
		}

		defer func() {
			if f, err := os.Create(history); err == nil {
				_, _ = line.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for ctx.Err() == nil {
		input, err := line.Prompt(shellPrompt)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		if s.execLine(ctx, input) {
			return nil
		}
	}

	return nil
}

// runScript reads commands from a non-terminal input, one per line.
func runScript(ctx context.Context, s *session, r io.Reader) error {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if s.execLine(ctx, scanner.Text()) {
			return nil
		}
	}

	return scanner.Err()
}

// execLine runs one shell line and reports whether the shell should stop.
// Command failures are printed and do not end the shell.
func (s *session) execLine(ctx context.Context, input string) bool {
	args, err := splitArgs(input)
	if err != nil {
		fprintln(s.errOut, "error:", err)

		return false
	}

	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return false
	}

	switch args[0] {
	case shellExitCmd, "quit", "q":
		return true
	}

	s.dispatch(ctx, args)

	return false
}

// splitArgs splits a line on whitespace. Double or single quotes group
// words, so names with spaces can be given.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		quote   rune
		inToken bool
	)

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				args = append(args, cur.String())
				cur.Reset()

				inToken = false
			}
		default:
			cur.WriteRune(r)

			inToken = true
		}
	}

	if quote != 0 {
		return nil, errUnclosedQuote
	}

	if inToken {
		args = append(args, cur.String())
	}

	return args, nil
}

func shellWords() []string {
	words := []string{"help", shellExitCmd, "quit"}

	for _, cmd := range commands(nil) {
		if cmd.Name() != "shell" {
			words = append(words, cmd.Name())
		}
	}

	return words
}

func historyPath(env map[string]string) string {
	home := env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, historyFile)
}
