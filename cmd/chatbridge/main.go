// Command chatbridge is a terminal client for the chat backend.
package main

import "github.com/diogo/chatbridge/internal/commands"

func main() {
	commands.Execute()
}
