package main

import "github.com/nimburion/docspec/pkg/cli"

func main() {
	cli.Execute(cli.NewServiceCommand(cli.ServiceCommandOptions{
		Name:        "docspec",
		Description: "Query MongoDB collections with specifications",
		EnvPrefix:   "DOCSPEC",
	}))
}
