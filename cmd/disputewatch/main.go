package main

import "dispute-analytics/internal/cli"

func main() {
	cli.Execute()
}
