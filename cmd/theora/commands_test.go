package main

import (
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	return cmd.Execute()
}

func TestBriefRejectsUnknownSlot(t *testing.T) {
	err := execute(briefCmd(), "--slot", "weather")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown slot")
}

func TestResetRequiresConfirmation(t *testing.T) {
	err := execute(resetCmd())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestKeyRejectsUnknownName(t *testing.T) {
	err := execute(keyCmd(), "set", "openai", "sk-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")

	err = execute(keyCmd(), "delete", "openai")
	require.Error(t, err)
}

func TestSpendRejectsBadAmount(t *testing.T) {
	err := execute(spendCmd(), "lots", "food")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing amount")
}

func TestSigninRequiresUID(t *testing.T) {
	err := execute(signinCmd())
	require.Error(t, err)
}

func TestCommandArgs(t *testing.T) {
	assert.Error(t, execute(chatCmd()))
	assert.Error(t, execute(spendCmd(), "100"))
}
