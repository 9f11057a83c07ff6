package main

import "github.com/NancyGarg/transcribe-ai/cmd"

func main() {
	cmd.Execute()
}
