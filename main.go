package main

import "github.com/Alijeyrad/counsel_backend/cmd"

func main() {
	cmd.Execute()
}
