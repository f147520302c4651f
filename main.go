package main

import "github.com/sambabib/scorecheck/cmd"

func main() {
	cmd.Execute()
}
