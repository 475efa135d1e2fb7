package main

import "github.com/panunburn/kv/cmd"

func main() {
	cmd.Execute()
}
