package main

import "github.com/dbsmedya/sqlora/cmd/sqlora/cmd"

func main() {
	cmd.Execute()
}
