package main

import "github.com/reduc/agenda/cmd/agendactl/cmd"

func main() {
	cmd.Execute()
}
