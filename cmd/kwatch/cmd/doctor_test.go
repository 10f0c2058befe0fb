package cmd

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorCmd_Text(t *testing.T) {
	// Given: a project with two files
	project(t)

	// When: running doctor
	stdout, _, err := execute(t, context.Background(), "doctor")

	// Then: the report lists the target count and a summary
	require.NoError(t, err)
	assert.Contains(t, stdout, "kwatch system check")
	assert.Contains(t, stdout, "watch_targets: 2 files")
	assert.Contains(t, stdout, "Status:")
}

func TestDoctorCmd_TextSummarizesWarnings(t *testing.T) {
	// Given: a project whose only directory is excluded
	dir := project(t)

	// When: running doctor
	stdout, _, err := execute(t, context.Background(), "doctor", "-x", dir)

	// Then: the summary counts the warnings
	require.NoError(t, err)
	assert.Contains(t, stdout, "[WARN] watch_targets")
	assert.Contains(t, stdout, "Status: READY_WITH_WARNINGS (")
}

func TestDoctorCmd_JSON(t *testing.T) {
	dir := project(t)

	stdout, _, err := execute(t, context.Background(), "doctor", "--json", "-x", dir)

	require.NoError(t, err)
	var report struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "ready_with_warnings", report.Status)
	require.NotEmpty(t, report.Checks)
	assert.Equal(t, "watch_targets", report.Checks[0].Name)
	assert.Equal(t, "warn", report.Checks[0].Status)
}

func TestDoctorCmd_RejectsArgs(t *testing.T) {
	project(t)

	_, _, err := execute(t, context.Background(), "doctor", "extra")

	assert.Error(t, err)
}
