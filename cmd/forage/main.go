package main

import "github.com/fuzzrnet/forage-go/cli"

func main() {
	cli.Execute()
}
