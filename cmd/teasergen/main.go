package main

import "github.com/Siddharth-vip/teasergen/internal/cli"

func main() {
	cli.Main()
}
