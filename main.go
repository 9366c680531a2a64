package main

import "github.com/yz4230/sitehost/cmd"

func main() {
	cmd.Execute()
}
