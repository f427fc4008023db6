package main

import "github.com/frahmantamala/learning-platform/cmd"

func main() {
	cmd.Execute()
}
