// cmd/boardsim/main.go
package main

import "radioboard-go/cmd/boardsim/cmd"

func main() { cmd.Execute() }
