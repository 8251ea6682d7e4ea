package main

import (
	"github.com/capscan/capscan/cmd"
)

func main() {
	cmd.Execute()
}
