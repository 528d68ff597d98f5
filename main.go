package main

import "onlycut/cmd"

func main() {
	cmd.Execute()
}
