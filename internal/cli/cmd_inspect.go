package cli

import (
	"context"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
)

// FreeCmd returns the free command.
func FreeCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("free", flag.ContinueOnError),
		Usage: "free",
		Group: GroupMaintenance,
		Short: "List free ranges",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return ErrArgsExtra
			}

			st, err := s.load(ctx)
			if err != nil {
				return err
			}

			free := st.FreeMap()
			o.Printf("%d of %d slots free in %d ranges\n", free.FreeSlots(), st.Capacity(), free.Len())

			for _, span := range free.Spans() {
				o.Printf("  %s (%d)\n", span, span.Len(st.MaxIdx()))
			}

			return nil
		},
	}
}

// CheckCmd returns the check command.
func CheckCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("check", flag.ContinueOnError),
		Usage: "check",
		Group: GroupMaintenance,
		Short: "Verify grid, indices and free ranges agree",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return ErrArgsExtra
			}

			st, err := s.load(ctx)
			if err != nil {
				return err
			}

			err = st.Verify()
			if err != nil {
				return err
			}

			o.Printf("ok: %d products, %d free slots\n", st.Len(), st.FreeMap().FreeSlots())

			return nil
		},
	}
}

// StatsCmd returns the stats command.
func StatsCmd(s *session) *Command {
	return &Command{
		Flags: flag.NewFlagSet("stats", flag.ContinueOnError),
		Usage: "stats",
		Group: GroupMaintenance,
		Short: "Print store metrics",
		Long: `Print the warehouse metrics. Counters cover the current process only, so
they are mostly useful inside 'warehouse shell'.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return ErrArgsExtra
			}

			_, err := s.load(ctx)
			if err != nil {
				return err
			}

			families, err := s.registry.Gather()
			if err != nil {
				return err
			}

			for _, mf := range families {
				for _, m := range mf.GetMetric() {
					var labels []string
					for _, l := range m.GetLabel() {
						labels = append(labels, l.GetName()+"="+strconv.Quote(l.GetValue()))
					}

					name := mf.GetName()
					if len(labels) > 0 {
						name += "{" + strings.Join(labels, ",") + "}"
					}

					value := m.GetGauge().GetValue()
					if m.GetCounter() != nil {
						value = m.GetCounter().GetValue()
					}

					o.Printf("%s %s\n", name, strconv.FormatFloat(value, 'g', -1, 64))
				}
			}

			return nil
		},
	}
}
