package main

import "reviewdesk/cmd"

func main() {
	cmd.Execute()
}
