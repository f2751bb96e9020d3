package main

import "github.com/rxng/mangapark-dl/cmd"

func main() {
	cmd.Execute()
}
