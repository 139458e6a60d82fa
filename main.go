package main

import "github.com/rdenisov/gembatch/cmd"

func main() {
	cmd.Execute()
}
