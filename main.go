package main

import "github.com/isometry/corpdir/cmd"

func main() {
	cmd.Execute()
}
