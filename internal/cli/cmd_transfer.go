package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/warehouse/internal/inventory"
	"github.com/calvinalkan/warehouse/pkg/warehouse"

	flag "github.com/spf13/pflag"
)

const stdioPath = "-"

// ExportCmd returns the export command.
func ExportCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("export", flag.ContinueOnError),
		Usage: "export <file>",
		Group: GroupMaintenance,
		Examples: []string{
			"export backup.json",
			"export - | jq .products",
		},
		Short: "Write the warehouse as JSON",
		Long:  "Write the warehouse snapshot as JSON to <file>, or to stdout when <file> is '-'.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			path, err := singlePath(args)
			if err != nil {
				return err
			}

			st, err := s.load(ctx)
			if err != nil {
				return err
			}

			if path == stdioPath {
				return st.Encode(o.Out())
			}

			var buf bytes.Buffer

			err = st.Encode(&buf)
			if err != nil {
				return err
			}

			abs := s.resolve(path)

			err = atomic.WriteFile(abs, &buf)
			if err != nil {
				return fmt.Errorf("export %s: %w", path, err)
			}

			o.Printf("exported %d products to %s\n", st.Len(), abs)

			return nil
		},
	}
}

// ImportCmd returns the import command.
func ImportCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("import", flag.ContinueOnError),
		Usage: "import <file>",
		Group: GroupMaintenance,
		Examples: []string{
			"import backup.json",
		},
		Short: "Replace the warehouse with a JSON export",
		Long: `Read a JSON export from <file> (or stdin when <file> is '-'), check it and
replace the saved warehouse with it. The warehouse size comes from the file.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			path, err := singlePath(args)
			if err != nil {
				return err
			}

			var r io.Reader

			if path == stdioPath {
				if s.stdin == nil {
					return fmt.Errorf("%w: no stdin", ErrArgsMissing)
				}

				r = s.stdin
			} else {
				f, err := os.Open(s.resolve(path))
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}
				defer f.Close()

				r = f
			}

			st, err := warehouse.Decode[*inventory.Item](r, s.options(0))
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}

			s.use(st)

			err = s.save(ctx, st)
			if err != nil {
				return err
			}

			if st.MaxIdx() != s.cfg.MaxIdx {
				o.Warn(
					fmt.Sprintf("imported warehouse has size %d, configured max_idx is %d", st.MaxIdx(), s.cfg.MaxIdx),
					"set max_idx to match before the next 'init --force'",
				)
			}

			o.Printf("imported %d products\n", st.Len())

			return nil
		},
	}
}

func singlePath(args []string) (string, error) {
	switch {
	case len(args) == 0:
		return "", fmt.Errorf("%w: <file>", ErrArgsMissing)
	case len(args) > 1:
		return "", ErrArgsExtra
	}

	return args[0], nil
}

func (s *session) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(s.cfg.EffectiveCwd, path)
}
