// Command lbsend sends raw commands to the engraving controller and prints
// the reply. The channel is best-effort UDP: "no reply" is reported as an
// outcome, not an error, and the exit code stays zero.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"laser-align/internal/lightburn"
)

func main() {
	host := flag.String("host", "", "Controller host (default localhost)")
	timeout := flag.Duration("timeout", lightburn.DefaultTimeout, "Reply timeout")
	force := flag.Bool("force", false, "Use FORCELOAD / FORCECLOSE variants")
	startOnNoReply := flag.Bool("start-on-no-reply", false, "For send: start even if the load reply is lost")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := lightburn.NewClient(*host)
	client.Timeout = *timeout

	verb := strings.ToLower(args[0])
	switch verb {
	case "ping":
		report(client.Send(lightburn.CmdPing))
	case "status":
		report(client.Send(lightburn.CmdStatus))
	case "start":
		report(client.Send(lightburn.CmdStart))
	case "close":
		cmd := lightburn.CmdClose
		if *force {
			cmd = lightburn.CmdForceClose
		}
		report(client.Send(cmd))
	case "load":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "load needs a file path")
			os.Exit(1)
		}
		cmd := lightburn.LoadFile(args[1])
		if *force {
			cmd = lightburn.ForceLoad(args[1])
		}
		report(client.Send(cmd))
	case "send":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "send needs a file path")
			os.Exit(1)
		}
		outcome, err := client.LoadAndStart(args[1], *force, *startOnNoReply)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Send failed: %v\n", err)
			os.Exit(1)
		}
		printPhase("load", outcome.Load)
		printPhase("start", outcome.Start)
		if !outcome.Started() {
			fmt.Println("Job not confirmed started")
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", verb)
		usage()
		os.Exit(1)
	}
}

func report(reply lightburn.Reply, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", err)
		os.Exit(1)
	}
	if reply.NoReply {
		fmt.Println("No reply (controller silent or reply lost)")
		return
	}
	fmt.Printf("Reply: %s\n", reply.Text)
}

func printPhase(name string, phase lightburn.PhaseOutcome) {
	if !phase.Attempted {
		fmt.Printf("%s: skipped\n", name)
		return
	}
	if phase.Reply.NoReply {
		fmt.Printf("%s: %s -> no reply\n", name, phase.Command)
		return
	}
	fmt.Printf("%s: %s -> %s\n", name, phase.Command, phase.Reply.Text)
}

func usage() {
	fmt.Println(`Usage: lbsend [flags] <command>

Commands:
  ping              Check the controller is answering
  status            Ask for the controller status line
  load <file>       Load a file (FORCELOAD with -force)
  start             Start the loaded job
  close             Close the open file (FORCECLOSE with -force)
  send <file>       Load a file then start it`)
	flag.PrintDefaults()
}
