package main

import "github.com/hatch/messaging/services/messaging-service/internal/app"

func main() {
	app.Execute()
}
