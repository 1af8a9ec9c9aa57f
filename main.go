package main

import (
	"github.com/axellelanca/linkshortener/cmd"
	_ "github.com/axellelanca/linkshortener/cmd/cli"
	_ "github.com/axellelanca/linkshortener/cmd/server"
)

func main() {
	cmd.Execute()
}
