package main

import "github.com/nyxvault/secretvault/cmd"

func main() {
	cmd.Execute()
}
