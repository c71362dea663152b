package main

import "github.com/nikogura/resume-analyzer/cmd"

func main() {
	cmd.Execute()
}
