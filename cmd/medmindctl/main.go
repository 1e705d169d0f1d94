package main

import "medmind-api/internal/cli"

func main() {
	cli.Execute()
}
