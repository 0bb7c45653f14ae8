package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ppc-network/tasklist/internal/domain"
)

// execute runs the root command against a fresh TASKLIST_HOME set by the
// caller and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	callerFlag, outputFlag = "", "table"
	taskDescription, listState, listLimit = "", "", 0
	recordsTask, recordsAfter, recordsLimit = 0, 0, 50
	historyLimit, configForce = 0, false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("tasklist %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestCLI_TaskLifecycle(t *testing.T) {
	t.Setenv("TASKLIST_HOME", t.TempDir())

	if out := mustExecute(t, "task", "create", "Build", "-d", "the thing", "--as", "alice"); !strings.Contains(out, "Created task 1") {
		t.Fatalf("create output = %q", out)
	}
	mustExecute(t, "worker", "add", "1", "bob", "--as", "alice")
	if out := mustExecute(t, "worker", "add", "1", "bob", "--as", "alice"); !strings.Contains(out, "already a worker") {
		t.Errorf("repeat add output = %q", out)
	}
	mustExecute(t, "hours", "add", "1", "3", "--as", "bob")
	mustExecute(t, "task", "fund", "1", "10", "--as", "carol")
	mustExecute(t, "task", "complete", "1", "5", "--as", "bob")

	out := mustExecute(t, "task", "validate", "1", "300", "4", "--as", "alice")
	if !strings.Contains(out, "Remaining balance: 7") {
		t.Errorf("validate output = %q", out)
	}

	out = mustExecute(t, "balance", "-o", "json")
	var bal balanceView
	if err := json.Unmarshal([]byte(out), &bal); err != nil {
		t.Fatalf("decode balance: %v\n%s", err, out)
	}
	if bal.ContractBalance != 7 || bal.SalaryRate != 1 || bal.TaskCount != 1 {
		t.Errorf("balance = %+v", bal)
	}

	if out := mustExecute(t, "rewards", "bob"); !strings.Contains(out, "bob holds 3 reward units") {
		t.Errorf("rewards output = %q", out)
	}
	if out := mustExecute(t, "earnings", "bob"); !strings.Contains(out, "bob earned 3") {
		t.Errorf("earnings output = %q", out)
	}
	if out := mustExecute(t, "records", "verify"); !strings.Contains(out, "OK: 7 records") {
		t.Errorf("verify output = %q", out)
	}
	if out := mustExecute(t, "hours", "show", "1", "bob"); strings.TrimSpace(out) != "3" {
		t.Errorf("hours show output = %q", out)
	}
}

func TestCLI_Errors(t *testing.T) {
	t.Setenv("TASKLIST_HOME", t.TempDir())
	mustExecute(t, "task", "create", "Build", "--as", "alice")

	_, err := execute(t, "task", "start", "1", "--as", "bob")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("start by non-validator: err = %v, want unauthorized", err)
	}
	_, err = execute(t, "task", "show", "x")
	if err == nil || !strings.Contains(err.Error(), "invalid task id") {
		t.Errorf("bad id: err = %v", err)
	}
	_, err = execute(t, "task", "create", "Nobody")
	if domain.ReasonOf(err) != domain.ReasonEmptyAddress {
		t.Errorf("missing --as: err = %v", err)
	}
	_, err = execute(t, "task", "list", "-o", "xml")
	if err == nil {
		t.Error("unknown output format should fail")
	}
}

func TestCLI_ListOutputs(t *testing.T) {
	t.Setenv("TASKLIST_HOME", t.TempDir())

	if out := mustExecute(t, "task", "list"); !strings.Contains(out, "No tasks") {
		t.Errorf("empty list output = %q", out)
	}
	mustExecute(t, "task", "create", "First", "--as", "alice")
	mustExecute(t, "task", "create", "Second", "--as", "alice")
	mustExecute(t, "task", "start", "2", "--as", "alice")

	out := mustExecute(t, "task", "list", "--state", "started")
	if !strings.Contains(out, "Second") || strings.Contains(out, "First") {
		t.Errorf("filtered list = %q", out)
	}

	out = mustExecute(t, "task", "list", "-o", "yaml")
	if !strings.Contains(out, "title: First") || !strings.Contains(out, "state: STARTED") {
		t.Errorf("yaml list = %q", out)
	}

	out = mustExecute(t, "validator", "list", "1")
	if !strings.Contains(out, "alice") {
		t.Errorf("validator list = %q", out)
	}
}

func TestCLI_ConfigInit(t *testing.T) {
	t.Setenv("TASKLIST_HOME", t.TempDir())

	if out := mustExecute(t, "config", "init"); !strings.Contains(out, "config.toml") {
		t.Errorf("init output = %q", out)
	}
	if _, err := execute(t, "config", "init"); err == nil {
		t.Error("second init without --force should fail")
	}
	mustExecute(t, "config", "init", "--force")

	out := mustExecute(t, "config", "show")
	if !strings.Contains(out, "salary_rate = 1") {
		t.Errorf("config show = %q", out)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1", 1, true},
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("parseID(%q) = %d, %v", tt.in, got, err)
		}
	}
}
