package main

import (
	"os"

	"github.com/prodtrack/jornada/jornadaservice"
)

func main() {
	if err := jornadaservice.Run(); err != nil {
		os.Exit(1)
	}
}
