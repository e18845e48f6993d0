// Command logwire writes, reads and sends Binary log frames.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/danmuck/logwire/internal/logging"
)

const usage = `usage: logwire <command> [flags]

commands:
  encode  append frames to a file (.zst files are zstd compressed)
  dump    print the records of a frame file ("-" reads stdin)
  send    write frames to a running logwired
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	logging.ConfigureRuntime()
	if err := run(os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "logwire: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string, stdin io.Reader, stdout io.Writer) error {
	switch cmd {
	case "encode":
		return runEncode(args, stdout)
	case "dump":
		return runDump(args, stdin, stdout)
	case "send":
		return runSend(args, stdin)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}
