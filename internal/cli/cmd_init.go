package cli

import (
	"context"
	"errors"

	"github.com/calvinalkan/warehouse/internal/inventory"
	"github.com/calvinalkan/warehouse/pkg/warehouse"

	flag "github.com/spf13/pflag"
)

// InitCmd returns the init command.
func InitCmd(s *session) *Command {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	force := fs.BoolP("force", "f", false, "Overwrite an existing warehouse")

	return &Command{
		Flags: fs,
		Usage: "init [--force]",
		Group: GroupSetup,
		Short: "Create an empty warehouse",
		Long: `Create an empty warehouse of the configured size (--max-idx) and save it.

Fails if the snapshot already exists, unless --force is given.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return ErrArgsExtra
			}

			return execInit(ctx, o, s, *force)
		},
	}
}

func execInit(ctx context.Context, o *IO, s *session, force bool) error {
	if !force {
		_, err := s.load(ctx)
		if err == nil {
			return ErrAlreadyInitialized
		}

		if !errors.Is(err, ErrNotInitialized) {
			return err
		}
	}

	st, err := warehouse.New[*inventory.Item](s.options(s.cfg.MaxIdx))
	if err != nil {
		return err
	}

	s.use(st)

	err = s.save(ctx, st)
	if err != nil {
		return err
	}

	n := st.MaxIdx()
	o.Printf("initialized warehouse: %d rows x %d shelves x %d zones (%d slots)\n", n, n, n, st.Capacity())

	return nil
}
