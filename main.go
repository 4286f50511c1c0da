package main

import "go-dnf-installer/cmd"

func main() {
	cmd.Execute()
}
