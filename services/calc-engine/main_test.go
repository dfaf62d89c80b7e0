package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const presets = "../../pkg/core/scenario/testdata"

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml"), "-log-level", "error"}, args...)
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCheck_Builtin(t *testing.T) {
	code, out, _ := runCLI(t, "-mode", "check")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "PASS  full-sequence")
	assert.Contains(t, out, "PASS  all-capex")
	assert.Contains(t, out, "Success: 5 scenarios passed")
}

func TestCheck_ScenarioFile(t *testing.T) {
	code, out, _ := runCLI(t, "-mode", "check", "-scenario", filepath.Join(presets, "presets.yaml"), "-format", "json")
	require.Equal(t, 0, code)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.NotEmpty(t, results)
}

func TestCheck_RetiredCodeFileFails(t *testing.T) {
	code, _, errOut := runCLI(t, "-mode", "check", "-scenario", filepath.Join(presets, "retired.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error:")
}

func TestCalculate_DefaultsAsJSON(t *testing.T) {
	code, out, _ := runCLI(t, "-format", "json")
	require.Equal(t, 0, code)

	var got roundOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Round)
	assert.Len(t, got.Result.Script, 5)
	assert.Equal(t, 28.5, got.Result.End.FirmCash)
	assert.Len(t, got.Frames, 5)
	assert.True(t, got.Verification.Passed)
}

func TestCalculate_LenientPayload(t *testing.T) {
	data := `{balances: {firm_cash: 100, assets_book: 50}, params: {op_margin: -20, allocation: {b_capex_pct: 50,},},}`
	code, out, _ := runCLI(t, "-data", data, "-format", "json")
	require.Equal(t, 0, code)

	var got roundOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.InDelta(t, -10, got.Result.Derived.OpCash, 1e-9)
	assert.Equal(t, 0.0, got.Result.Derived.TaxStake)
	assert.Equal(t, 45.0, got.Result.Derived.BCapex)
	assert.Equal(t, 45.0, got.Result.End.FirmCash)
}

func TestCalculate_StrictRejects(t *testing.T) {
	code, _, errOut := runCLI(t, "-data", `{"strict": true, "params": {"tax_stake_pct": 120}}`)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error:")
}

func TestCalculate_NamedScenarioText(t *testing.T) {
	code, out, _ := runCLI(t, "-name", "issue-capped")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Round 1")
	assert.Contains(t, out, "Checks: ok")
}

func TestRun_MultipleRoundsMarkdown(t *testing.T) {
	code, out, _ := runCLI(t, "-mode", "run", "-rounds", "3", "-format", "markdown")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "## Round 1")
	assert.Contains(t, out, "## Round 3")
}

func TestRun_BadInputs(t *testing.T) {
	code, _, _ := runCLI(t, "-mode", "run", "-rounds", "0")
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, "-mode", "explode")
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "-format", "yaml")
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "-name", "nope")
	assert.Equal(t, 1, code)
}
