package main

import "github.com/taskforge/ostore/cmd"

func main() {
	cmd.Execute()
}
