// Package main is the tododay command line.
//
// Usage:
//
//	tododay add <content>           create a todo for today
//	tododay list [--date DAY]       todos created on a day
//	tododay update <id> [flags]     change content, status or priority
//	tododay delete <id>             remove a todo
//	tododay stale                   unfinished todos from earlier days
//	tododay resolve <id>=<action>   carry-over, mark-inactive or mark-completed
//	tododay search <query>          full-text search
//	tododay status                  database health
//	tododay version                 print version
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const (
	version = "0.1.0"
	appName = "tododay"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

// run executes one command line and closes the store afterwards, whether or
// not the command succeeded.
func run(ctx context.Context, args []string, out, errOut io.Writer) (err error) {
	a := &app{out: out, errOut: errOut}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()

	root := newRootCmd(a)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
