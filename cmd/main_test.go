package cmd

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
)

func TestRootCmdRequiresVersionArgument(t *testing.T) {
	rootCmd.SetArgs([]string{})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("Execute succeeded without a version argument")
	}
	if !strings.Contains(err.Error(), "version to build") {
		t.Fatalf("err = %q, want the missing version message", err)
	}
}

func TestRootCmdRejectsExtraArguments(t *testing.T) {
	rootCmd.SetArgs([]string{"3.11.3", "3.10.11"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("Execute accepted two version arguments")
	}
}

func TestRootCmdRejectsMalformedVersion(t *testing.T) {
	rootCmd.SetArgs([]string{"pypy"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("Execute accepted the version pypy")
	}
	if !strings.Contains(err.Error(), "Invalid Python version 'pypy'") {
		t.Fatalf("err = %q, want the invalid version message", err)
	}
}

func TestExitCodePropagatesCommandExit(t *testing.T) {
	err := exec.Command("sh", "-c", "exit 7").Run()
	if err == nil {
		t.Fatal("expected the fixture command to fail")
	}

	wrapped := eris.Wrap(err, "Command sh failed")
	if got := exitCode(wrapped); got != 7 {
		t.Fatalf("exitCode = %d, want 7", got)
	}
}

func TestExitCodeDefaultsToOne(t *testing.T) {
	if got := exitCode(eris.New("Unsupported stack 'heroku-18'!")); got != 1 {
		t.Fatalf("exitCode = %d, want 1", got)
	}
}
