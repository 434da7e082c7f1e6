package main

import "github.com/avkit/framesink/cmd/framesink/commands"

func main() {
	commands.Execute()
}
