package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestServeCommandHelp(t *testing.T) {
	cmd := newServeCommand(&globalFlags{})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("serve command --help failed: %v", err)
	}

	output := buf.String()
	expectedStrings := []string{
		"Start the Eventify HTTP server",
		"--host",
		"--port",
		"--migrate",
		"server host address",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("expected help text to contain %q, got:\n%s", expected, output)
		}
	}
}

func TestServeCommandFlagParsing(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectError bool
	}{
		{name: "valid host flag", args: []string{"--host", "127.0.0.1"}},
		{name: "valid port flag", args: []string{"--port", "9090"}},
		{name: "migrate flag", args: []string{"--migrate"}},
		{name: "invalid port value", args: []string{"--port", "invalid"}, expectError: true},
		{name: "unknown flag", args: []string{"--unknown"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newServeCommand(&globalFlags{})

			err := cmd.ParseFlags(tt.args)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestServeCommandGlobalFlags(t *testing.T) {
	root := newRootCommand()

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"serve", "--help"})

	if err := root.Execute(); err != nil {
		t.Fatalf("serve command with global flags failed: %v", err)
	}

	output := buf.String()
	for _, flag := range []string{"--config", "--log-level", "--log-format"} {
		if !strings.Contains(output, flag) {
			t.Errorf("expected help text to contain global flag %q, got:\n%s", flag, output)
		}
	}
}

func TestServeCommandRejectsInvalidConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cmd := newServeCommand(&globalFlags{})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "config error") {
		t.Fatalf("expected config error, got %v", err)
	}
}
