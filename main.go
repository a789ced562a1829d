package main

import "github.com/mikesmitty/rollavg/cmd"

func main() {
	cmd.Execute()
}
