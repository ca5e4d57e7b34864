package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/calvinalkan/warehouse/pkg/warehouse"

	flag "github.com/spf13/pflag"
)

// RemoveCmd returns the rm command.
func RemoveCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage: "rm <row> <shelf> <zone>",
		Group: GroupStock,
		Examples: []string{
			"rm 0 1 2",
		},
		Short: "Remove the product at a location",
		Long: `Remove the product stored at the given location and print it.

For an oversized product, give the location of its first zone; the zones it
reserves are released with it.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			at, err := parseCoordsArgs(args)
			if err != nil {
				return err
			}

			return execRemove(ctx, o, s, at)
		},
	}
}

func execRemove(ctx context.Context, o *IO, s *session, at warehouse.Coords) error {
	st, err := s.load(ctx)
	if err != nil {
		return err
	}

	p, err := st.RemoveProduct(at)
	if err != nil {
		return err
	}

	err = s.save(ctx, st)
	if err != nil {
		return err
	}

	o.Println("removed", at)
	o.Println(p)

	return nil
}

// parseCoordsArgs reads "<row> <shelf> <zone>" from positional args.
func parseCoordsArgs(args []string) (warehouse.Coords, error) {
	if len(args) < 3 {
		return warehouse.Coords{}, fmt.Errorf("%w: want <row> <shelf> <zone>", ErrArgsMissing)
	}

	if len(args) > 3 {
		return warehouse.Coords{}, fmt.Errorf("%w: %s", ErrArgsExtra, strings.Join(args[3:], " "))
	}

	return warehouse.ParseCoords(strings.Join(args, " "))
}
