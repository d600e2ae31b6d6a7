package main

import "github.com/lucasjlepore/techjournal/cmd/techjournal/cmd"

func main() {
	cmd.Execute()
}
