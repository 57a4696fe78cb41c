package main

import "github.com/solarb/solana-arb/cmd"

func main() {
	cmd.Execute()
}
