// Command navictl talks to a running bot over its admin gRPC listener.
//
//	navictl -addr 127.0.0.1:50051 filters <guild> [channel]
//	navictl -addr 127.0.0.1:50051 check <guild> <channel> <content>
//	navictl -addr 127.0.0.1:50051 tasks <guild>
//	navictl -addr 127.0.0.1:50051 cancel <task-id>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"navi/grpc/client"
)

type adminClient interface {
	ListFilters(ctx context.Context, guildID, channelID string) ([]map[string]interface{}, error)
	CheckContent(ctx context.Context, guildID, channelID, content string) (map[string]interface{}, error)
	ListTasks(ctx context.Context, guildID string) ([]map[string]interface{}, error)
	CancelTask(ctx context.Context, id int64) error
}

var errUsage = errors.New("usage: navictl [-addr host:port] filters|check|tasks|cancel ...")

func main() {
	addr := flag.String("addr", "127.0.0.1:50051", "address of the bot's admin gRPC listener")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	c, err := client.Dial(*addr)
	if err != nil {
		log.Fatalf("Error connecting to %s: %v", *addr, err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := run(ctx, c, flag.Args(), os.Stdout); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, c adminClient, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch cmd, rest := args[0], args[1:]; {
	case cmd == "filters" && (len(rest) == 1 || len(rest) == 2):
		channelID := ""
		if len(rest) == 2 {
			channelID = rest[1]
		}
		rows, err := c.ListFilters(ctx, rest[0], channelID)
		if err != nil {
			return fmt.Errorf("failed to list filters: %w", err)
		}
		printRows(out, rows)
	case cmd == "check" && len(rest) >= 3:
		res, err := c.CheckContent(ctx, rest[0], rest[1], strings.Join(rest[2:], " "))
		if err != nil {
			return fmt.Errorf("failed to check content: %w", err)
		}
		printRows(out, []map[string]interface{}{res})
	case cmd == "tasks" && len(rest) == 1:
		rows, err := c.ListTasks(ctx, rest[0])
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		printRows(out, rows)
	case cmd == "cancel" && len(rest) == 1:
		id, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q: %w", rest[0], err)
		}
		if err := c.CancelTask(ctx, id); err != nil {
			return fmt.Errorf("failed to cancel task %d: %w", id, err)
		}
		fmt.Fprintf(out, "task %d cancelled\n", id)
	default:
		return errUsage
	}
	return nil
}

// printRows writes one line per row with keys in sorted order.
func printRows(out io.Writer, rows []map[string]interface{}) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "(none)")
		return
	}
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]string, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, fmt.Sprintf("%s=%v", k, row[k]))
		}
		fmt.Fprintln(out, strings.Join(fields, " "))
	}
}
