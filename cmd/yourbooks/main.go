package main

import (
	"os"

	"github.com/Mudegi/YourBookSuit-sub007/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
