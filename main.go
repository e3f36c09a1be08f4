package main

import "github.com/takeshy/photorelay/cmd"

func main() {
	cmd.Execute()
}
