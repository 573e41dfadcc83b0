package main

import "github.com/eventify-org/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
