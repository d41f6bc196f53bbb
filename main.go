package main

import "github.com/twiced-technology-gmbh/multibuild/cmd"

func main() {
	cmd.Execute()
}
