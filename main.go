package main

import "github.com/frahmantamala/subscription-billing/cmd"

func main() {
	cmd.Execute()
}
