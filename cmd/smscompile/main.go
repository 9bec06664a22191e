// Command smscompile reads an SMS source file and writes the Standard MIDI
// File it compiles to.
package main

import (
	"flag"
	"fmt"
	"os"

	"smscompiler/internal/sms"
)

func main() {
	out := flag.String("o", "", "output .mid path (default: stdout)")
	report := flag.Bool("report", false, "print the compile report to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: smscompile [-o out.mid] [-report] input.sms")
		os.Exit(2)
	}

	src, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "smscompile: %v\n", err)
		os.Exit(1)
	}

	smf, rep, err := sms.Compile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "smscompile: %v\n", err)
		os.Exit(1)
	}

	if *report {
		fmt.Fprintln(os.Stderr, rep.String())
	}

	if *out == "" {
		if _, err := os.Stdout.Write(smf); err != nil {
			fmt.Fprintf(os.Stderr, "smscompile: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := os.WriteFile(*out, smf, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "smscompile: %v\n", err)
		os.Exit(1)
	}
}
