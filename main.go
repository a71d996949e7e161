package main

import "github.com/yeremiapane/restaurant-reservation/cmd"

func main() {
	cmd.Execute()
}
