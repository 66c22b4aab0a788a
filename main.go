package main

import "github.com/TheQwirl/qwirl-client/cmd"

func main() {
	cmd.Execute()
}
