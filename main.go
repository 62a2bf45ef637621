package main

import "github.com/kolbkit/ckv/cmd"

func main() {
	cmd.Execute()
}
