package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("starting")
	os.Exit(1) // want `os.Exit call is forbidden in main function: os.Exit\(1\)`
}

func helper() {
	os.Exit(2)
}
