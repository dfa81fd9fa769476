package main

import "github.com/jsphweid/fretcoach/cmd"

func main() {
	cmd.Execute()
}
