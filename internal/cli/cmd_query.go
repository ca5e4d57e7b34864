package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/calvinalkan/warehouse/internal/inventory"
	"github.com/calvinalkan/warehouse/pkg/warehouse"

	flag "github.com/spf13/pflag"
)

// ListCmd returns the ls command.
func ListCmd(s *session) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	all := fs.BoolP("all", "a", false, "List every product instead of one per name")

	return &Command{
		Flags: fs,
		Usage: "ls [--all]",
		Group: GroupLookup,
		Short: "List products by name",
		Long: `Print the number of stored products, then the first product stored under
each name, in name order. With --all, print every product in location order.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return ErrArgsExtra
			}

			st, err := s.load(ctx)
			if err != nil {
				return err
			}

			o.Printf("%d products\n", st.Len())

			if *all {
				for at, p := range st.Products() {
					printLocated(o, at, p)
				}

				return nil
			}

			for name, coords := range st.Names() {
				p, ok := st.Product(coords[0])
				if !ok {
					return fmt.Errorf("%w: name index lists %s for %q", warehouse.ErrCorrupt, coords[0], name)
				}

				printLocated(o, coords[0], p)

				if len(coords) > 1 {
					o.Printf("\t(%d more named %q)\n", len(coords)-1, name)
				}
			}

			return nil
		},
	}
}

// FindCmd returns the find command.
func FindCmd(s *session) *Command {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	id := fs.Int64("id", 0, "Search by product identifier")
	name := fs.String("name", "", "Search by product name")

	return &Command{
		Flags: fs,
		Usage: "find --id <n> | --name <s>",
		Group: GroupLookup,
		Examples: []string{
			"find --name apple",
			"find --id 7",
		},
		Short: "Find products by identifier or name",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return ErrArgsExtra
			}

			byID, byName := fs.Changed("id"), fs.Changed("name")

			switch {
			case byID && byName:
				return fmt.Errorf("%w: --id, --name", ErrFlagConflict)
			case !byID && !byName:
				return fmt.Errorf("%w: --id or --name", ErrFlagRequired)
			}

			st, err := s.load(ctx)
			if err != nil {
				return err
			}

			var coords []warehouse.Coords
			if byID {
				coords = st.SearchByID(*id)
			} else {
				coords = st.SearchByName(*name)
			}

			o.Printf("%d products found\n", len(coords))

			for _, at := range coords {
				p, ok := st.Product(at)
				if !ok {
					return fmt.Errorf("%w: index lists free slot %s", warehouse.ErrCorrupt, at)
				}

				printLocated(o, at, p)
			}

			return nil
		},
	}
}

// ShowCmd returns the show command.
func ShowCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("show", flag.ContinueOnError),
		Usage: "show <row> <shelf> <zone>",
		Group: GroupLookup,
		Short: "Show what a location holds",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			at, err := parseCoordsArgs(args)
			if err != nil {
				return err
			}

			st, err := s.load(ctx)
			if err != nil {
				return err
			}

			slot, err := st.Slot(at)
			if err != nil {
				return err
			}

			switch slot.State {
			case warehouse.SlotOccupied:
				printLocated(o, at, slot.Product)
			case warehouse.SlotContinuation:
				o.Printf("%s is reserved by an oversized product\n", at)
			default:
				o.Printf("%s is free\n", at)
			}

			return nil
		},
	}
}

// ShelfCmd returns the shelf command.
func ShelfCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shelf", flag.ContinueOnError),
		Usage: "shelf <row> <shelf>",
		Group: GroupLookup,
		Short: "Show every zone of a shelf",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("%w: want <row> <shelf>", ErrArgsMissing)
			}

			var rs [2]int

			for i, arg := range args {
				n, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("%w: %q is not a number", warehouse.ErrInvalidCoords, arg)
				}

				rs[i] = n
			}

			st, err := s.load(ctx)
			if err != nil {
				return err
			}

			slots, err := st.Shelf(rs[0], rs[1])
			if err != nil {
				return err
			}

			o.Printf("row %d, shelf %d\n", rs[0], rs[1])

			for zone, slot := range slots {
				switch slot.State {
				case warehouse.SlotOccupied:
					p := slot.Product
					o.Printf("  zone %d: #%d %s x%d (%s)\n", zone, p.ID(), p.Name(), p.Amount(), p.Category().Kind)
				case warehouse.SlotContinuation:
					o.Printf("  zone %d: reserved\n", zone)
				default:
					o.Printf("  zone %d: free\n", zone)
				}
			}

			return nil
		},
	}
}

func printLocated(o *IO, at warehouse.Coords, p *inventory.Item) {
	o.Printf("Location %s\n%s\n", at, p)
}
