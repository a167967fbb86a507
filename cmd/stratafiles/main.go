// Command stratafiles runs the file storage and sharing service.
package main

import (
	"context"
	"log"

	"github.com/dalemusser/stratafiles/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
