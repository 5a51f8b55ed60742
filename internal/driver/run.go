package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"bbasic/internal/bbcerr"
	"bbasic/internal/runtime"
	"bbasic/internal/symtab"
	"bbasic/internal/terminal"
)

// Options configures one Execute call (spec.md §6's CLI surface).
type Options struct {
	Debug bool
}

// Execute builds and runs src to completion, installing the SIGINT
// handler and exit cleanup spec.md §5 calls for. It returns the process
// exit status: 0 on a clean run or reached END, the numeric BBC error
// code when one is in range, or 1 for anything else (parse failure,
// fatal abort).
func Execute(src string, stderr io.Writer, opts Options) int {
	sym := symtab.NewTable()
	prog, err := Build(src, sym)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", terminal.Colour("red", err.Error()))
		return 1
	}

	var interrupt int32
	rt := runtime.New(sym, prog.Lines, prog.DataL, prog.Data, &interrupt)
	rt.Debug = opts.Debug

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-gctx.Done()
		rt.Term.Restore()
		atomic.StoreInt32(&interrupt, 1)
		return nil
	})

	defer func() {
		rt.Files.CloseAll()
		rt.Term.Restore()
	}()

	if prog.Entry == nil {
		stop()
		group.Wait()
		return 0
	}

	_, runErr := rt.Run(prog.Entry)
	stop()
	group.Wait()

	if opts.Debug {
		if dump := rt.Files.DebugDump(); dump != "" {
			fmt.Fprint(stderr, dump)
		}
	}

	return exitCodeFor(runErr, stderr, opts.Debug)
}

func exitCodeFor(err error, stderr io.Writer, debug bool) int {
	if err == nil {
		return 0
	}
	switch e := err.(type) {
	case *bbcerr.Error:
		fmt.Fprintf(stderr, "%s\n", terminal.Colour("red", e.Error()))
		if code := int(e.Code); code > 0 && code < 256 {
			return code
		}
		return 1
	case *bbcerr.Fatal:
		fmt.Fprintf(stderr, "%s\n", terminal.Colour("red", e.Error()))
		if debug {
			fmt.Fprintln(stderr, e.DebugDump())
		}
		return 1
	default:
		fmt.Fprintf(stderr, "%s\n", terminal.Colour("red", err.Error()))
		return 1
	}
}
