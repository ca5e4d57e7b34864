package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SplitArgs_Groups_Quoted_Words(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line string
		want []string
	}{
		{line: "", want: nil},
		{line: "   \t ", want: nil},
		{line: "ls", want: []string{"ls"}},
		{line: "  rm  0 1\t2 ", want: []string{"rm", "0", "1", "2"}},
		{line: `add --name "green apple"`, want: []string{"add", "--name", "green apple"}},
		{line: `find --name 'it''s'`, want: []string{"find", "--name", "its"}},
		{line: `add --name ""`, want: []string{"add", "--name", ""}},
		{line: `say "a 'b' c"`, want: []string{"say", "a 'b' c"}},
	}

	for _, tc := range cases {
		got, err := splitArgs(tc.line)
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want, got, tc.line)
	}

	_, err := splitArgs(`add --name "apple`)
	require.ErrorIs(t, err, errUnclosedQuote)
}

func Test_ClockFromEnv_Pins_Time_When_Set(t *testing.T) {
	t.Parallel()

	now, err := clockFromEnv(map[string]string{EnvNow: "2024-03-01T12:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:00:00Z", now().Format("2006-01-02T15:04:05Z07:00"))

	_, err = clockFromEnv(map[string]string{EnvNow: "yesterday"})
	require.Error(t, err)
}
