package main

import "github.com/KaramelBytes/llmclean-cli/cmd"

func main() {
	cmd.Execute()
}
