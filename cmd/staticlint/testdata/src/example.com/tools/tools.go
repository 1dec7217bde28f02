package tools

import "fmt"

func Show(name string) {
	fmt.Println(name)
}
