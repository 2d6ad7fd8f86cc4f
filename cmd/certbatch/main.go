package main

import "github.com/certforge/certbatch/cli"

func main() {
	cli.Run()
}
