package main

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    toolCall
		wantErr bool
	}{
		{line: "   ", want: toolCall{}},
		{line: "/status", want: toolCall{tool: "get_system_info", args: map[string]any{}}},
		{line: "/history", want: toolCall{tool: "get_history", args: map[string]any{}}},
		{line: "/history 5", want: toolCall{tool: "get_history", args: map[string]any{"limit": 5}}},
		{line: "/history five", wantErr: true},
		{line: "/history 0", wantErr: true},
		{line: "/tools", want: toolCall{tool: "/tools"}},
		{line: "/bogus", wantErr: true},
		{line: "is my disk ok?", want: toolCall{tool: "ask_autosense", args: map[string]any{"question": "is my disk ok?"}}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLine(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseLine_Quit(t *testing.T) {
	for _, line := range []string{"/quit", "/exit"} {
		if _, err := parseLine(line); !errors.Is(err, errQuit) {
			t.Errorf("parseLine(%q) = %v, want errQuit", line, err)
		}
	}
}

func TestPrintHelpListsEveryCommand(t *testing.T) {
	var buf bytes.Buffer
	printHelp(&buf)
	for _, c := range commands {
		if !strings.Contains(buf.String(), c.name) {
			t.Errorf("help missing %s:\n%s", c.name, buf.String())
		}
	}
}
