package cli_test

import (
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/warehouse/internal/cli"
)

// newWarehouse returns a test CLI with an initialized 3x3x3 warehouse.
func newWarehouse(t *testing.T) *cli.CLI {
	t.Helper()

	c := cli.NewCLI(t)
	c.WriteFile(".warehouse.json", `{"max_idx": 3}`)
	c.MustRun("init")

	return c
}

func Test_Run_Prints_Usage_When_No_Command(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout, _, code := c.Run()
	require.Equal(t, 0, code)
	cli.AssertContains(t, stdout, "warehouse - 3D warehouse slot allocation")
	cli.AssertContains(t, stdout, "add --id <n> --name <s>")
	cli.AssertContains(t, stdout, "expiry [YYYY-MM-DD]")
}

func Test_Run_Fails_When_Command_Unknown(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stderr := c.MustFail("teleport")
	cli.AssertContains(t, stderr, "unknown command: teleport")
}

func Test_Run_Fails_When_Config_Invalid(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stderr := c.MustFail("--policy", "random", "ls")
	cli.AssertContains(t, stderr, "unknown policy")
}

func Test_Command_Help_Lists_Flags(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout := c.MustRun("add", "--help")
	cli.AssertContains(t, stdout, "Usage: warehouse add")
	cli.AssertContains(t, stdout, "--category")
	cli.AssertContains(t, stdout, "--zones")
}

func Test_Run_Groups_Commands_In_Usage(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout := c.MustRun("help")

	stock := strings.Index(stdout, "Stock:")
	lookup := strings.Index(stdout, "Lookup:")
	setup := strings.Index(stdout, "Setup:")

	require.True(t, stock >= 0 && lookup > stock && setup > lookup, "sections out of order:\n%s", stdout)
	assert.Less(t, strings.Index(stdout, "  rm <row> <shelf> <zone>"), lookup, "rm is listed under Stock")
	assert.Greater(t, strings.Index(stdout, "  init [--force]"), setup, "init is listed under Setup")
}

func Test_Command_Help_Shows_Examples(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout := c.MustRun("expiry", "--help")
	cli.AssertContains(t, stdout, "Examples:")
	cli.AssertContains(t, stdout, "  warehouse expiry --days 7 --list")
}

func Test_Command_Points_To_Help_When_Flag_Unknown(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)

	stderr := c.MustFail("ls", "--colour")
	cli.AssertContains(t, stderr, "unknown flag: --colour")
	cli.AssertContains(t, stderr, "see 'warehouse ls --help'")
	cli.AssertNotContains(t, stderr, "Usage:")
}

func Test_Init_Writes_Snapshot_When_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".warehouse.json", `{"max_idx": 3}`)

	stdout := c.MustRun("init")
	assert.Equal(t, "initialized warehouse: 3 rows x 3 shelves x 3 zones (27 slots)", stdout)

	raw := c.ReadFile(filepath.Join(".warehouse", "warehouse.json"))
	cli.AssertContains(t, raw, `"store_max_idx":3`)
	cli.AssertContains(t, raw, `"saved_at"`)
}

func Test_Init_Fails_When_Already_Initialized_Unless_Forced(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)
	c.MustRun("add", "--id", "1", "--name", "apple")

	stderr := c.MustFail("init")
	cli.AssertContains(t, stderr, "already initialized")

	c.MustRun("init", "--force")
	assert.Equal(t, "0 products", c.MustRun("ls"))
}

func Test_Commands_Fail_When_Not_Initialized(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	for _, args := range [][]string{
		{"ls"},
		{"add", "--id", "1", "--name", "apple"},
		{"rm", "0", "0", "0"},
		{"expiry"},
	} {
		stderr := c.MustFail(args...)
		cli.AssertContains(t, stderr, "warehouse not initialized")
	}
}

func Test_Add_Places_Products_At_Closest_Free_Slot(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)

	assert.Equal(t, "(0, 0, 0)", c.MustRun("add", "--id", "1", "--name", "apple"))
	assert.Equal(t, "(0, 0, 1)", c.MustRun("add", "--id", "2", "--name", "pear", "--amount", "4"))

	stdout := c.MustRun("show", "0", "0", "1")
	cli.AssertContains(t, stdout, "Location (0, 0, 1)")
	cli.AssertContains(t, stdout, "Product ID 2:")
	cli.AssertContains(t, stdout, "Amount: 4")
	cli.AssertContains(t, stdout, "Entered the warehouse at: 2024-03-01T12:00:00Z")
}

func Test_Add_Fails_When_Required_Flags_Missing(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)

	cases := []struct {
		args []string
		want string
	}{
		{args: []string{"add", "--name", "apple"}, want: "--id"},
		{args: []string{"add", "--id", "1"}, want: "--name"},
		{args: []string{"add", "--id", "1", "--name", "milk", "--category", "fragile", "--max-row", "1"}, want: "--expiry"},
		{args: []string{"add", "--id", "1", "--name", "milk", "--category", "fragile", "--expiry", "2024-03-02"}, want: "--max-row"},
		{args: []string{"add", "--id", "1", "--name", "sofa", "--category", "oversized"}, want: "--zones"},
		{args: []string{"add", "--id", "1", "--name", "x", "--category", "liquid"}, want: "unknown category"},
		{args: []string{"add", "--id", "1", "--name", "  "}, want: "name is required"},
	}

	for _, tc := range cases {
		stderr := c.MustFail(tc.args...)
		cli.AssertContains(t, stderr, tc.want)
	}

	assert.Equal(t, "0 products", c.MustRun("ls"))
}

func Test_Add_Fails_When_Warehouse_Full(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".warehouse.json", `{"max_idx": 1}`)
	c.MustRun("init")
	c.MustRun("add", "--id", "1", "--name", "apple")

	stderr := c.MustFail("add", "--id", "2", "--name", "pear")
	cli.AssertContains(t, stderr, "could not find a place")
}

func Test_Oversized_Product_Reserves_Following_Zones(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)
	c.MustRun("add", "--id", "1", "--name", "apple")

	assert.Equal(t, "(0, 0, 1)", c.MustRun("add", "--id", "2", "--name", "sofa", "--category", "oversized", "--zones", "1"))
	assert.Equal(t, "(0, 0, 2) is reserved by an oversized product", c.MustRun("show", "0", "0", "2"))

	shelf := c.MustRun("shelf", "0", "0")
	cli.AssertContains(t, shelf, "zone 0: #1 apple x1 (normal)")
	cli.AssertContains(t, shelf, "zone 1: #2 sofa x1 (oversized)")
	cli.AssertContains(t, shelf, "zone 2: reserved")

	stderr := c.MustFail("rm", "0", "0", "2")
	cli.AssertContains(t, stderr, "placeholders cannot be manipulated")

	stdout := c.MustRun("rm", "0", "0", "1")
	cli.AssertContains(t, stdout, "removed (0, 0, 1)")
	cli.AssertContains(t, stdout, "Oversized - Occupies 1 zones")

	assert.Equal(t, "(0, 0, 2) is free", c.MustRun("show", "0", "0", "2"))
}

func Test_Rm_Fails_When_Slot_Free_Or_Args_Invalid(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)

	cli.AssertContains(t, c.MustFail("rm", "0", "0", "0"), "no product in location")
	cli.AssertContains(t, c.MustFail("rm", "0", "0"), "missing arguments")
	cli.AssertContains(t, c.MustFail("rm", "0", "0", "x"), "invalid coordinates")
	cli.AssertContains(t, c.MustFail("rm", "3", "0", "0"), "outside warehouse")
}

func Test_Fragile_Product_Stays_At_Or_Below_Max_Row(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".warehouse.json", `{"max_idx": 2}`)
	c.MustRun("init")

	for id := range 4 {
		c.MustRun("add", "--id", strconv.Itoa(id + 1), "--name", "box")
	}

	assert.Equal(t, "(1, 0, 0)", c.MustRun("add", "--id", "9", "--name", "eggs",
		"--category", "fragile", "--expiry", "2024-03-02", "--max-row", "1"))

	stderr := c.MustFail("add", "--id", "10", "--name", "glass",
		"--category", "fragile", "--expiry", "2024-03-02", "--max-row", "0")
	cli.AssertContains(t, stderr, "could not find a place")
}

func Test_Expiry_Reports_Expired_And_Expiring_Counts(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)

	for _, p := range []struct{ id, expiry string }{
		{"1", "2024-02-01"},
		{"2", "2024-02-29"},
		{"3", "2024-03-01"},
		{"4", "2024-03-04"},
		{"5", "2024-03-05"},
	} {
		c.MustRun("add", "--id", p.id, "--name", "milk", "--category", "fragile", "--expiry", p.expiry, "--max-row", "2")
	}

	c.MustRun("add", "--id", "6", "--name", "bread")

	stdout := c.MustRun("expiry")
	assert.Equal(t, "2 items have expired\n2 items will expire within 3 days", stdout)

	stdout = c.MustRun("expiry", "2024-03-05", "--days", "0", "--list")
	cli.AssertContains(t, stdout, "4 items have expired")
	cli.AssertContains(t, stdout, "  2024-02-01: 1")
	cli.AssertContains(t, stdout, "1 items will expire within 0 days")
	cli.AssertContains(t, stdout, "  2024-03-05: 5")

	cli.AssertContains(t, c.MustFail("expiry", "03/05/2024"), "want YYYY-MM-DD")
	cli.AssertContains(t, c.MustFail("expiry", "--days", "-1"), "must not be negative")
}

func Test_Ls_And_Find_Report_Counts(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)
	c.MustRun("add", "--id", "1", "--name", "pear")
	c.MustRun("add", "--id", "2", "--name", "apple")
	c.MustRun("add", "--id", "2", "--name", "apple")

	stdout := c.MustRun("ls")
	require.True(t, strings.HasPrefix(stdout, "3 products\n"), stdout)
	assert.Less(t, strings.Index(stdout, "Name: apple"), strings.Index(stdout, "Name: pear"), "names in order")
	cli.AssertContains(t, stdout, `(1 more named "apple")`)

	all := c.MustRun("ls", "--all")
	assert.Equal(t, 3, strings.Count(all, "Location ("))

	byName := c.MustRun("find", "--name", "apple")
	cli.AssertContains(t, byName, "2 products found")
	cli.AssertContains(t, byName, "Location (0, 0, 1)")
	cli.AssertContains(t, byName, "Location (0, 0, 2)")

	assert.Equal(t, "0 products found", c.MustRun("find", "--id", "7"))
	cli.AssertContains(t, c.MustFail("find", "--id", "1", "--name", "pear"), "mutually exclusive")
	cli.AssertContains(t, c.MustFail("find"), "flag is required")
}

func Test_Filters_From_Config_Reject_Products(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".warehouse.json", `{
		"max_idx": 3,
		"filters": {"reject_expired": true, "unique_ids": true, "max_amount": 10},
	}`)
	c.MustRun("init")
	c.MustRun("add", "--id", "1", "--name", "apple")

	for _, args := range [][]string{
		{"add", "--id", "1", "--name", "apple"},
		{"add", "--id", "2", "--name", "apple", "--amount", "11"},
		{"add", "--id", "3", "--name", "milk", "--category", "fragile", "--expiry", "2024-02-29", "--max-row", "2"},
	} {
		cli.AssertContains(t, c.MustFail(args...), "not allowed by current filters")
	}

	assert.Equal(t, "(0, 0, 1)", c.MustRun("add", "--id", "4", "--name", "milk",
		"--category", "fragile", "--expiry", "2024-03-01", "--max-row", "2"))
}

func Test_Free_And_Check_Describe_Free_Ranges(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)
	c.MustRun("add", "--id", "1", "--name", "a")
	c.MustRun("add", "--id", "2", "--name", "b")
	c.MustRun("rm", "0", "0", "0")

	stdout := c.MustRun("free")
	cli.AssertContains(t, stdout, "26 of 27 slots free in 2 ranges")
	cli.AssertContains(t, stdout, "  (0, 0, 0) (1)")
	cli.AssertContains(t, stdout, "  (0, 0, 2)..=(2, 2, 2) (25)")

	assert.Equal(t, "ok: 1 products, 26 free slots", c.MustRun("check"))
}

func Test_Export_And_Import_Round_Trip(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)
	c.MustRun("add", "--id", "1", "--name", "apple")
	c.MustRun("add", "--id", "2", "--name", "sofa", "--category", "oversized", "--zones", "2")

	cli.AssertContains(t, c.MustRun("export", "backup.json"), "exported 2 products")
	cli.AssertContains(t, c.ReadFile("backup.json"), `"store_max_idx": 3`)

	c.MustRun("init", "--force")
	assert.Equal(t, "0 products", c.MustRun("ls"))

	assert.Equal(t, "imported 2 products", c.MustRun("import", "backup.json"))
	assert.Equal(t, "(0, 1, 0)", strings.SplitN(c.MustRun("find", "--id", "2"), "\n", 3)[1][len("Location "):])
	assert.Equal(t, "(0, 1, 2) is reserved by an oversized product", c.MustRun("show", "0", "1", "2"))
}

func Test_Import_Warns_When_Size_Differs_From_Config(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)
	c.MustRun("add", "--id", "1", "--name", "apple")

	stdout := c.MustRun("export", "-")

	other := cli.NewCLI(t)
	other.WriteFile(".warehouse.json", `{"max_idx": 5}`)

	out, stderr, code := other.RunWithInput(stdout, "import", "-")
	assert.Equal(t, 1, code, "warnings exit 1")
	cli.AssertContains(t, out, "imported 1 products")
	cli.AssertContains(t, stderr, "warning: imported warehouse has size 3, configured max_idx is 5")
	cli.AssertContains(t, stderr, "  hint: set max_idx to match")
	assert.Equal(t, 2, strings.Count(stderr, "warning:"), "repeated before and after stdout")

	assert.Equal(t, "(0, 0, 0)", strings.SplitN(other.MustRun("find", "--id", "1"), "\n", 3)[1][len("Location "):])
}

func Test_Import_Fails_When_File_Corrupt(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)
	c.WriteFile("bad.json", `{"store_max_idx": 3, "store": []}`)

	cli.AssertContains(t, c.MustFail("import", "bad.json"), "corrupt state")
	cli.AssertContains(t, c.MustFail("import", "missing.json"), "import:")
	assert.Equal(t, "0 products", c.MustRun("ls"))
}

func Test_Log_Level_Debug_Logs_Placements(t *testing.T) {
	t.Parallel()

	c := newWarehouse(t)

	_, stderr, code := c.Run("--log-level", "debug", "add", "--id", "1", "--name", "apple")
	require.Equal(t, 0, code)
	cli.AssertContains(t, stderr, "product placed")
	cli.AssertContains(t, stderr, "warehouse saved")
}

func Test_SQLite_Driver_Persists_Between_Runs(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".warehouse.json", `{"max_idx": 2, "snapshot": {"driver": "sqlite"}}`)

	c.MustRun("init")
	c.MustRun("add", "--id", "1", "--name", "apple")

	assert.Equal(t, "(0, 0, 1)", c.MustRun("add", "--id", "2", "--name", "pear"))
	cli.AssertContains(t, c.MustRun("print-config"), "snapshot.path="+filepath.Join(c.Dir, ".warehouse", "warehouse.db"))
}

func Test_Print_Config_Shows_Sources(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout := c.MustRun("print-config")
	cli.AssertContains(t, stdout, "max_idx=20")
	cli.AssertContains(t, stdout, "policy=closest-free")
	cli.AssertContains(t, stdout, "(defaults only)")

	c.WriteFile(".warehouse.json", `{"policy": "round-robin"}`)

	stdout = c.MustRun("--max-idx", "4", "print-config")
	cli.AssertContains(t, stdout, "max_idx=4")
	cli.AssertContains(t, stdout, "policy=round-robin")
	cli.AssertContains(t, stdout, "project_config="+filepath.Join(c.Dir, ".warehouse.json"))
}
