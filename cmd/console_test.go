package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleWriterPrefixesPhase(t *testing.T) {
	var out bytes.Buffer
	writer := &ConsoleWriter{out: &out}

	_, err := writer.Write([]byte(`{"level":"info","phase":"fetch","message":"Downloading sources"}`))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if got := out.String(); !strings.Contains(got, "fetch: Downloading sources") {
		t.Fatalf("output = %q, want the phase-prefixed message", got)
	}
}

func TestConsoleWriterEchoesCommands(t *testing.T) {
	var out bytes.Buffer
	writer := &ConsoleWriter{out: &out}

	_, err := writer.Write([]byte(`{"level":"info","phase":"compile","command":true,"message":"make install"}`))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if got := out.String(); !strings.Contains(got, "compile: $ make install") {
		t.Fatalf("output = %q, want the echoed command line", got)
	}
}

func TestConsoleWriterRendersErrors(t *testing.T) {
	var out bytes.Buffer
	writer := &ConsoleWriter{out: &out}

	_, err := writer.Write([]byte(`{"level":"error","message":"Build failed","error":"Command make failed"}`))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Error: Build failed") {
		t.Fatalf("output = %q, want an Error: prefix", got)
	}
	if !strings.Contains(got, "Command make failed") {
		t.Fatalf("output = %q, want the error details", got)
	}
}

func TestConsoleWriterRejectsGarbage(t *testing.T) {
	var out bytes.Buffer
	writer := &ConsoleWriter{out: &out}

	if _, err := writer.Write([]byte("plain text, not an event")); err == nil {
		t.Fatal("Write accepted a non-JSON event")
	}
}
