package main

import (
	"github.com/AzielCF/az-tweetcast/cmd"
)

func main() {
	cmd.Execute()
}
