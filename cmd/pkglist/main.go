package main

import "pkglist/internal/cli"

func main() {
	cli.Execute()
}
