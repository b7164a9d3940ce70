package main

import "github.com/sidukcapil/apiserver/cmd"

func main() {
	cmd.Execute()
}
