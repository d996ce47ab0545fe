package main

import "github.com/dbsmedya/json2csv/cmd/json2csv/cmd"

func main() {
	cmd.Execute()
}
