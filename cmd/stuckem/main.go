package main

import (
	"fmt"
	"os"

	"example.com/stuckem/internal/cli"
)

const releaseVersion = "0.4.0"

func main() {
	static, err := webHandler()
	if err != nil {
		fmt.Fprintln(os.Stderr, "embedded assets:", err)
		os.Exit(1)
	}

	cmd := cli.NewRootCmd(cli.Options{Version: releaseVersion, Static: static})
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
