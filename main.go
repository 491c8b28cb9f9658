package main

import "notegraph/cmd"

func main() {
	cmd.Execute()
}
