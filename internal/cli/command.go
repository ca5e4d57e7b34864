package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Group sorts commands into sections of the usage listing.
type Group uint8

// Command groups, in listing order.
const (
	GroupStock Group = iota
	GroupLookup
	GroupMaintenance
	GroupSetup
)

var groupTitles = [...]string{
	GroupStock:       "Stock",
	GroupLookup:      "Lookup",
	GroupMaintenance: "Maintenance",
	GroupSetup:       "Setup",
}

func (g Group) String() string {
	if int(g) < len(groupTitles) {
		return groupTitles[g]
	}

	return fmt.Sprintf("group(%d)", uint8(g))
}

// Command is one warehouse subcommand.
type Command struct {
	// Flags holds the command's own flags. Global flags are parsed before
	// the command name and never reach it.
	Flags *flag.FlagSet

	// Usage starts with the command name, followed by its arguments,
	// e.g. "rm <row> <shelf> <zone>".
	Usage string

	Group Group
	Short string

	// Long replaces Short in "warehouse <cmd> --help".
	Long string

	// Examples are argument lists shown after "warehouse" in command help.
	Examples []string

	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns the listing entry with Usage padded to width.
func (c *Command) HelpLine(width int) string {
	return fmt.Sprintf("  %-*s  %s", width, c.Usage, c.Short)
}

// PrintHelp writes "warehouse <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: warehouse " + c.Usage)
	o.Println()

	if c.Long != "" {
		o.Println(c.Long)
	} else {
		o.Println(c.Short)
	}

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")
		o.Printf("%s", c.Flags.FlagUsages())
	}

	if len(c.Examples) > 0 {
		o.Println()
		o.Println("Examples:")

		for _, ex := range c.Examples {
			o.Println("  warehouse " + ex)
		}
	}
}

// Run parses args into the command's flags and calls Exec. Errors are
// printed here and turned into exit code 1.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	err := c.Flags.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		c.PrintHelp(o)

		return 0
	}

	if err != nil {
		o.ErrPrintln("error:", err)
		o.ErrPrintln(fmt.Sprintf("see 'warehouse %s --help'", c.Name()))

		return 1
	}

	err = c.Exec(ctx, o, c.Flags.Args())
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return 0
}
