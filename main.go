package main

import "github.com/qrave1/RoomPoint/cmd"

func main() {
	cmd.Execute()
}
