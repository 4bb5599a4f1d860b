package main

import "github.com/shiplet/ast-search/cmd"

func main() {
	cmd.Execute()
}
