package main

import "github/itish2003/notehub/cmd"

func main() {
	cmd.Execute()
}
