package main

import "github.com/Tiliavir/ttt-timeline/cmd"

func main() {
	cmd.Execute()
}
