package main

import "campuscoin/internal/cli"

func main() {
	cli.Execute()
}
