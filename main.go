package main

import "promogen/cmd"

func main() {
	cmd.Execute()
}
