package main

import "github.com/atorrez/fleetwatch/internal/cli"

func main() {
	cli.Execute()
}
