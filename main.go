package main

import "github.com/Alonza0314/free-ran-l2/cmd"

func main() {
	cmd.Execute()
}
