// cmd/bbasic/main.go
package main

import (
	"fmt"
	"os"

	"bbasic/internal/driver"
)

const version = "1.0.0"

// commandAliases maps the short forms of each flag to its canonical
// name, the same shape the teacher's cmd/sentra/main.go uses for its
// subcommands.
var commandAliases = map[string]string{
	"-d": "--debug",
	"-h": "--help",
	"-i": "--inline",
	"-V": "--version",
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		debug  bool
		inline string
		file   string
		haveIn bool
	)

	i := 0
	for i < len(args) {
		arg := args[i]
		if alias, ok := commandAliases[arg]; ok {
			arg = alias
		}
		switch arg {
		case "--help":
			showUsage()
			return 0
		case "--version":
			fmt.Printf("bbasic %s\n", version)
			return 0
		case "--debug":
			debug = true
		case "--inline":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--inline requires a program string")
				return 1
			}
			i++
			inline = args[i]
			haveIn = true
		default:
			if file != "" {
				fmt.Fprintf(os.Stderr, "unexpected argument %q\n", arg)
				return 1
			}
			file = arg
		}
		i++
	}

	if haveIn && file != "" {
		fmt.Fprintln(os.Stderr, "--inline and FILE are mutually exclusive")
		return 1
	}

	var src string
	switch {
	case haveIn:
		src = inline
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not read file: %v\n", err)
			return 1
		}
		src = string(data)
	default:
		fmt.Fprintln(os.Stderr, "no input provided")
		return 1
	}

	return driver.Execute(src, os.Stderr, driver.Options{Debug: debug})
}

func showUsage() {
	fmt.Println("bbasic - a BBC BASIC II interpreter")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bbasic [OPTIONS] FILE")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -d, --debug          print diagnostic state on fatal error")
	fmt.Println("  -i, --inline STRING  run STRING as the program text, instead of FILE")
	fmt.Println("  -h, --help           show this message")
	fmt.Println("  -V, --version        show version")
}
