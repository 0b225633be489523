package main

import "github.com/joachricar/sessioncred/cmd"

func main() {
	cmd.Execute()
}
