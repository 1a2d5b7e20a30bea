package main

import "dreamweaver_backend/internal/app"

func main() {
	app.Run()
}
