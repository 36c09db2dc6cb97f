package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTransitionsCmd_Text(t *testing.T) {
	t.Parallel()

	out, err := runRoot(t, "transitions", "--entity", "payment")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "ENTITY"))
	require.Contains(t, out, "Refunding + reject -> Paid/approved [if transactionType=Expense]")
	require.NotContains(t, out, "subscriber")
}

func TestTransitionsCmd_JSON(t *testing.T) {
	t.Parallel()

	out, err := runRoot(t, "transitions", "--entity", "subscriber", "--format", "json")
	require.NoError(t, err)

	var singleOnly int
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		var rule ruleLine
		require.NoError(t, json.Unmarshal([]byte(l), &rule))
		require.Equal(t, "subscriber", string(rule.Entity))
		if rule.SingleOnly {
			singleOnly++
			require.True(t, rule.ApplyProposal)
		}
	}
	require.Equal(t, 1, singleOnly)
}

func TestTransitionsCmd_Errors(t *testing.T) {
	t.Parallel()

	_, err := runRoot(t, "transitions", "--entity", "invoice")
	require.Equal(t, exitValidation, exitCode(err))

	_, err = runRoot(t, "transitions", "--format", "yaml")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, exitOK, exitCode(nil))
	require.Equal(t, 1, exitCode(assertErr("plain")))
	require.Equal(t, exitDB, exitCode(withCode(exitDB, assertErr("down"))))
	require.NoError(t, withCode(exitDB, nil))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
