package main

import "github.com/yz4230/dpw-deploy/cmd"

func main() {
	cmd.Execute()
}
