package main

import "github.com/samsaffron/alicia/cmd"

func main() {
	cmd.Execute()
}
