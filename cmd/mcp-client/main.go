// Command mcp-client is an interactive shell for the autosense MCP server.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// command maps a slash command onto an MCP tool.
type command struct {
	name  string
	usage string
	help  string
	tool  string
	args  func(fields []string) (map[string]any, error)
}

func noArgs([]string) (map[string]any, error) { return map[string]any{}, nil }

func limitArg(fields []string) (map[string]any, error) {
	if len(fields) == 0 {
		return map[string]any{}, nil
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("limit must be a positive number, got %q", fields[0])
	}
	return map[string]any{"limit": n}, nil
}

var commands = []command{
	{name: "/status", help: "current metrics and health grades", tool: "get_system_info", args: noArgs},
	{name: "/alerts", help: "stored and current alerts", tool: "get_alerts", args: noArgs},
	{name: "/predict", help: "failure-risk prediction", tool: "predict_health", args: noArgs},
	{name: "/drives", help: "drives available for the disk map", tool: "list_drives", args: noArgs},
	{name: "/security", help: "firewall, open ports and malware scan", tool: "scan_security", args: noArgs},
	{name: "/history", usage: "[n]", help: "recorded snapshots", tool: "get_history", args: limitArg},
}

var errQuit = errors.New("quit")

// toolCall is what one input line resolves to. An empty tool means the line
// was handled locally.
type toolCall struct {
	tool string
	args map[string]any
}

// parseLine turns a line of input into a tool call. Anything that is not a
// slash command is a question for ask_autosense.
func parseLine(line string) (toolCall, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return toolCall{}, nil
	}
	if !strings.HasPrefix(fields[0], "/") {
		return toolCall{tool: "ask_autosense", args: map[string]any{"question": line}}, nil
	}
	switch fields[0] {
	case "/quit", "/exit":
		return toolCall{}, errQuit
	case "/tools", "/help":
		return toolCall{tool: fields[0]}, nil
	}
	for _, c := range commands {
		if c.name != fields[0] {
			continue
		}
		args, err := c.args(fields[1:])
		if err != nil {
			return toolCall{}, err
		}
		return toolCall{tool: c.tool, args: args}, nil
	}
	return toolCall{}, fmt.Errorf("unknown command %s, try /help", fields[0])
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", strings.TrimSpace(c.name+" "+c.usage), c.help)
	}
	fmt.Fprintf(w, "  %-14s %s\n", "/tools", "tools the server exposes")
	fmt.Fprintf(w, "  %-14s %s\n", "/quit", "leave")
	fmt.Fprintf(w, "  %-14s %s\n", "anything else", "asked as a question")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: mcp-client <server-command> [args...]")
		fmt.Fprintln(os.Stderr, "e.g.   mcp-client autosense mcp")
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := mcp.NewClient(&mcp.Implementation{Name: "autosense-client", Version: "1.0.0"}, nil)
	transport := &mcp.CommandTransport{Command: exec.Command(flag.Arg(0), flag.Args()[1:]...)}
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("connect to %s: %v", flag.Arg(0), err)
	}
	defer session.Close()

	fmt.Printf("autosense MCP session open (%s)\n", flag.Arg(0))
	printHelp(os.Stdout)

	if err := repl(ctx, session, os.Stdin, os.Stdout); err != nil {
		log.Printf("read input: %v", err)
	}
}

func repl(ctx context.Context, session *mcp.ClientSession, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "autosense> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		call, err := parseLine(scanner.Text())
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			fmt.Fprintln(out, err)
			continue
		}

		switch call.tool {
		case "":
		case "/help":
			printHelp(out)
		case "/tools":
			listTools(ctx, session, out)
		default:
			result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: call.tool, Arguments: call.args})
			if err != nil {
				fmt.Fprintf(out, "%s failed: %v\n", call.tool, err)
				continue
			}
			writeResult(out, result)
		}
	}
}

func listTools(ctx context.Context, session *mcp.ClientSession, out io.Writer) {
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			fmt.Fprintf(out, "list tools: %v\n", err)
			return
		}
		fmt.Fprintf(out, "  %-16s %s\n", tool.Name, tool.Description)
	}
}

func writeResult(out io.Writer, result *mcp.CallToolResult) {
	if result.IsError {
		fmt.Fprint(out, "error: ")
	}
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			fmt.Fprintln(out, text.Text)
			continue
		}
		data, err := json.MarshalIndent(content, "", "  ")
		if err != nil {
			fmt.Fprintf(out, "%+v\n", content)
			continue
		}
		fmt.Fprintln(out, string(data))
	}
}
