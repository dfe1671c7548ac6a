package main

import "storefront/internal/cli"

var version = "dev"

func main() {
	cli.Execute(version)
}
