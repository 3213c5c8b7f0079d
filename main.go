package main

import "github.com/racedecoder/f1-warehouse-go/cmd"

func main() {
	cmd.Execute()
}
