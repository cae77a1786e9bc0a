package main

import "github.com/streamgrab/streamgrab/cmd"

func main() {
	cmd.Execute()
}
