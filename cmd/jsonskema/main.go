package main

import "github.com/reoring/jsonskema/cmd/jsonskema/internal/command"

func main() {
	command.Execute()
}
