package main

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-data-service/internal/domain/entity"
	"vehicle-data-service/internal/usecase"
)

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)

	require.NoError(t, printReport(cmd, &usecase.MigrationReport{Examined: 3, Changed: 2}))
	assert.Contains(t, buf.String(), "examined=3 changed=2 failed=0")

	err := printReport(cmd, &usecase.MigrationReport{Examined: 1, Failed: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 item(s) failed")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	result := &entity.CheckResult{
		Success:   true,
		VRM:       "YD17AVU",
		APICalls:  4,
		TotalCost: decimal.RequireFromString("2.01"),
		Errors:    []entity.ServiceError{},
	}

	require.NoError(t, printJSON(&buf, result))
	assert.Contains(t, buf.String(), `"vrm": "YD17AVU"`)
	assert.Contains(t, buf.String(), `"totalCost": "2.01"`)
	assert.Contains(t, buf.String(), `"errors": []`)
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"check", "reconcile", "refresh-listing", "migrate", "spend", "token"} {
		assert.True(t, names[want], want)
	}

	sub, _, err := rootCmd.Find([]string{"migrate", "dangling-refs"})
	require.NoError(t, err)
	assert.Equal(t, "dangling-refs", sub.Name())
}
