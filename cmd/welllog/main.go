package main

import "github.com/ssargent/welllog/cmd/welllog/cmd"

func main() {
	cmd.Execute()
}
