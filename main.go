package main

import "github.com/mselser95/polymarket-lp/cmd"

func main() {
	cmd.Execute()
}
