package main

import "github.com/asteria-studio/normalize-core/cmd"

func main() {
	cmd.Execute()
}
