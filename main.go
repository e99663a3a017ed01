package main

import "github.com/nsyszr/msgbroker/cmd"

func main() {
	cmd.Execute()
}
