// Command wsh is an interactive console for a running warren world. Each
// line is submitted to the world's Eval procedure. Input is ESTree JSON by
// default; with -parser, raw source is piped through an external parser
// command that prints ESTree JSON (the parser is a host collaborator, not
// part of the world).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"connectrpc.com/connect"
	"github.com/chzyer/readline"

	"github.com/chazu/warren/world"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:7770", "world RPC base URL")
	parser := flag.String("parser", "", "external parser command (source on stdin, ESTree JSON on stdout)")
	flag.Parse()

	evalClient := connect.NewClient[world.EvalRequest, world.EvalResponse](
		http.DefaultClient, *addr+world.ProcEval, world.JSONCodec())
	sessionClient := connect.NewClient[world.OpenSessionRequest, world.OpenSessionResponse](
		http.DefaultClient, *addr+world.ProcOpenSession, world.JSONCodec())
	threadsClient := connect.NewClient[world.ThreadsRequest, world.ThreadsResponse](
		http.DefaultClient, *addr+world.ProcThreads, world.JSONCodec())
	snapshotClient := connect.NewClient[world.SnapshotRequest, world.SnapshotResponse](
		http.DefaultClient, *addr+world.ProcSnapshot, world.JSONCodec())
	restoreClient := connect.NewClient[world.RestoreRequest, world.RestoreResponse](
		http.DefaultClient, *addr+world.ProcRestore, world.JSONCodec())

	ctx := context.Background()

	session := ""
	if resp, err := sessionClient.CallUnary(ctx, connect.NewRequest(&world.OpenSessionRequest{})); err == nil {
		session = resp.Msg.Session
	}

	rl, err := readline.New("warren> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "wsh: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == ":quit" || line == ":q":
			return
		case line == ":threads":
			resp, err := threadsClient.CallUnary(ctx, connect.NewRequest(&world.ThreadsRequest{}))
			if err != nil {
				fmt.Fprintf(os.Stderr, "wsh: %v\n", err)
				continue
			}
			for _, t := range resp.Msg.Threads {
				fmt.Printf("%6d  %s\n", t.ID, t.Status)
			}
			continue
		case line == ":snapshot":
			resp, err := snapshotClient.CallUnary(ctx, connect.NewRequest(&world.SnapshotRequest{}))
			if err != nil {
				fmt.Fprintf(os.Stderr, "wsh: %v\n", err)
				continue
			}
			fmt.Printf("checkpoint %d (%d records)\n", resp.Msg.CheckpointID, resp.Msg.Records)
			continue
		case line == ":restore":
			resp, err := restoreClient.CallUnary(ctx, connect.NewRequest(&world.RestoreRequest{}))
			if err != nil {
				fmt.Fprintf(os.Stderr, "wsh: %v\n", err)
				continue
			}
			fmt.Printf("restored checkpoint %d\n", resp.Msg.CheckpointID)
			continue
		}

		source := line
		if *parser != "" {
			source, err = runParser(*parser, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "wsh: parser: %v\n", err)
				continue
			}
		}

		resp, err := evalClient.CallUnary(ctx, connect.NewRequest(&world.EvalRequest{
			Source:  source,
			Session: session,
		}))
		if err != nil {
			fmt.Fprintf(os.Stderr, "wsh: %v\n", err)
			continue
		}
		if !resp.Msg.Success {
			fmt.Fprintf(os.Stderr, "error: %s\n", resp.Msg.ErrorMessage)
			continue
		}
		fmt.Println(resp.Msg.Value)
	}
}

// runParser pipes source through the external parser command.
func runParser(command, source string) (string, error) {
	parts := strings.Fields(command)
	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Stdin = strings.NewReader(source)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
