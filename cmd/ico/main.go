package main

import (
	"os"

	"github.com/waifuai/solana-ico/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
