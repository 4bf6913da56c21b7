package main

import "github.com/stackmeld/stackbak/cmd/stackbak/cmd"

func main() {
	cmd.Execute()
}
