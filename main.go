package main

import "github.com/agentic-research/corpuscheck/cmd"

func main() {
	cmd.Execute()
}
