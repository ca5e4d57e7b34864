package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/warehouse/pkg/warehouse"

	flag "github.com/spf13/pflag"
)

const defaultExpiryWindow = 3

// ExpiryCmd returns the expiry command.
func ExpiryCmd(s *session) *Command {
	fs := flag.NewFlagSet("expiry", flag.ContinueOnError)
	days := fs.IntP("days", "d", defaultExpiryWindow, "Days ahead to look for expiring products")
	list := fs.BoolP("list", "l", false, "List identifiers per expiry day")

	return &Command{
		Flags: fs,
		Usage: "expiry [YYYY-MM-DD] [--days N]",
		Group: GroupStock,
		Examples: []string{
			"expiry --days 7 --list",
			"expiry 2024-03-31",
		},
		Short: "Report expired and soon-expiring products",
		Long: `Count fragile products that expired before the given day (default: today)
and those expiring on it or within the following --days days.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("%w: %s", ErrArgsExtra, strings.Join(args[1:], " "))
			}

			if *days < 0 {
				return fmt.Errorf("%w: --days must not be negative", warehouse.ErrInvalidInput)
			}

			day := warehouse.Day(s.now())

			if len(args) == 1 {
				parsed, err := warehouse.ParseDay(args[0])
				if err != nil {
					return err
				}

				day = parsed
			}

			st, err := s.load(ctx)
			if err != nil {
				return err
			}

			expired := st.ExpiredBefore(day)
			soon := st.ExpiringWithin(day, *days)

			o.Printf("%d items have expired\n", warehouse.CountIDs(expired))

			if *list {
				printExpiry(o, expired)
			}

			o.Printf("%d items will expire within %d days\n", warehouse.CountIDs(soon), *days)

			if *list {
				printExpiry(o, soon)
			}

			return nil
		},
	}
}

func printExpiry(o *IO, entries []warehouse.ExpiryEntry) {
	for _, e := range entries {
		ids := make([]string, len(e.IDs))
		for i, id := range e.IDs {
			ids[i] = strconv.FormatInt(id, 10)
		}

		o.Printf("  %s: %s\n", e.Date.Format("2006-01-02"), strings.Join(ids, ", "))
	}
}
