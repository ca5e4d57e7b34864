package cli

import (
	"context"
	"fmt"

	"github.com/calvinalkan/warehouse/internal/inventory"
	"github.com/calvinalkan/warehouse/pkg/warehouse"

	flag "github.com/spf13/pflag"
)

// AddCmd returns the add command.
func AddCmd(s *session) *Command {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	id := fs.Int64("id", 0, "Product identifier")
	name := fs.String("name", "", "Product name")
	amount := fs.Uint64("amount", 1, "Quantity")
	category := fs.String("category", "normal", "Category: normal|fragile|oversized")
	expiry := fs.String("expiry", "", "Expiry day YYYY-MM-DD (fragile)")
	maxRow := fs.Int("max-row", 0, "Highest row allowed (fragile)")
	zones := fs.Int("zones", 0, "Extra zones occupied (oversized)")

	return &Command{
		Flags: fs,
		Usage: "add --id <n> --name <s> [flags]",
		Group: GroupStock,
		Examples: []string{
			"add --id 7 --name apple --amount 12",
			"add --id 8 --name milk --category fragile --expiry 2024-03-09 --max-row 1",
			"add --id 9 --name sofa --category oversized --zones 2",
		},
		Short: "Place a product, prints its location",
		Long: `Place a product using the configured policy and print where it went.

Fragile products need --expiry and --max-row. Oversized products need --zones,
the number of zones they occupy after their own on the same shelf.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return ErrArgsExtra
			}

			for _, required := range []string{"id", "name"} {
				if !fs.Changed(required) {
					return fmt.Errorf("%w: --%s", ErrFlagRequired, required)
				}
			}

			cat, err := parseCategory(fs, *category, *expiry, *maxRow, *zones)
			if err != nil {
				return err
			}

			item := &inventory.Item{
				Ident:    *id,
				Label:    *name,
				Quantity: *amount,
				Quality:  cat,
				Created:  s.now().UTC(),
			}

			return execAdd(ctx, o, s, item)
		},
	}
}

func parseCategory(fs *flag.FlagSet, kind, expiry string, maxRow, zones int) (warehouse.Category, error) {
	k, err := warehouse.ParseKind(kind)
	if err != nil {
		return warehouse.Category{}, err
	}

	switch k {
	case warehouse.KindFragile:
		if !fs.Changed("expiry") {
			return warehouse.Category{}, fmt.Errorf("%w: --expiry for fragile products", ErrFlagRequired)
		}

		if !fs.Changed("max-row") {
			return warehouse.Category{}, fmt.Errorf("%w: --max-row for fragile products", ErrFlagRequired)
		}

		day, err := warehouse.ParseDay(expiry)
		if err != nil {
			return warehouse.Category{}, err
		}

		return warehouse.Fragile(day, maxRow), nil
	case warehouse.KindOversized:
		if !fs.Changed("zones") {
			return warehouse.Category{}, fmt.Errorf("%w: --zones for oversized products", ErrFlagRequired)
		}

		return warehouse.Oversized(zones), nil
	default:
		return warehouse.Normal(), nil
	}
}

func execAdd(ctx context.Context, o *IO, s *session, item *inventory.Item) error {
	err := item.Validate()
	if err != nil {
		return err
	}

	st, err := s.load(ctx)
	if err != nil {
		return err
	}

	at, err := st.AddProduct(item, s.policy)
	if err != nil {
		return err
	}

	err = s.save(ctx, st)
	if err != nil {
		return err
	}

	o.Println(at)

	return nil
}
