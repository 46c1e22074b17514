package main

import "productload/cmd"

func main() {
	cmd.Execute()
}
