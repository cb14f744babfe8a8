package main

import (
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/spf13/pflag"

	"hark/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Daemon socket path")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: hark-ctl [-s socket] trigger | file <path>\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	var msg ipc.ControlMessage
	switch args := cli.Args(); {
	case len(args) == 0 || args[0] == ipc.CmdTrigger:
		msg = ipc.ControlMessage{Cmd: ipc.CmdTrigger}
	case args[0] == ipc.CmdFile && len(args) == 2:
		path, err := filepath.Abs(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad path:", err)
			os.Exit(2)
		}
		msg = ipc.ControlMessage{Cmd: ipc.CmdFile, Arg: path}
	default:
		cli.Usage()
		os.Exit(2)
	}

	if err := ipc.SendCommand(*socket, msg); err != nil {
		fmt.Println("hark-clip not running:", err)
		os.Exit(1)
	}
}
