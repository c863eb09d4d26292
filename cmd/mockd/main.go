// Command mockd is the mockman process entrypoint.
package main

import "github.com/getmockd/mockman/pkg/cli"

func main() {
	cli.Execute()
}
