package store

import (
	"fmt"
	"os"
)

func Save(name string) error {
	fmt.Println("saving", name) // want `fmt.Println in internal package, use the logger`
	fmt.Printf("%s\n", name)    // want `fmt.Printf in internal package, use the logger`
	println(name)               // want `println in internal package, use the logger`
	fmt.Fprintln(os.Stderr, name)
	_ = fmt.Sprintf("%s", name)
	return nil
}
