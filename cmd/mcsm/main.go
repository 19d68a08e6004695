package main

import "github.com/oshokin/mcserver-manager/cmd/mcsm/cmd"

func main() {
	cmd.Execute()
}
