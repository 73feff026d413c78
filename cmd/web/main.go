package main

import "authapi_backend/internal/app"

func main() {
	app.Run()
}
