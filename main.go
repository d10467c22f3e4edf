package main

import "github.com/audiolibrelab/moodcap/cmd"

func main() {
	cmd.Execute()
}
