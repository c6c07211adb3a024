package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"molequeue/internal/server"
)

// newPromptPolicy builds a conflict policy that asks the user whether to
// replace a running instance. When stdin is not a terminal there is nobody
// to ask and the existing instance wins.
func newPromptPolicy(in io.Reader, out io.Writer) server.ConflictPolicy {
	return server.PolicyFunc(func(ctx context.Context, conflict server.Conflict) (server.Decision, error) {
		if !stdinIsTerminal(in) {
			return server.KeepExistingAndExit, nil
		}

		fmt.Fprintf(out, "Another molequeue daemon already owns %s", conflict.SocketPath)
		if conflict.PID > 0 {
			fmt.Fprintf(out, " (pid %d)", conflict.PID)
		}
		fmt.Fprint(out, ".\nReplace it? [y/N]: ")

		answer := make(chan string, 1)
		go func() {
			reader := bufio.NewReader(in)
			line, err := reader.ReadString('\n')
			if err != nil {
				answer <- ""
				return
			}
			answer <- strings.ToLower(strings.TrimSpace(line))
		}()

		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nNo answer, keeping the existing instance.")
			return server.KeepExistingAndExit, nil
		case line := <-answer:
			if line == "y" || line == "yes" {
				return server.ForceReplace, nil
			}
			return server.KeepExistingAndExit, nil
		}
	})
}

func stdinIsTerminal(in io.Reader) bool {
	file, ok := in.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
