package main

import (
	"flag"
	"log"

	srv "github.com/mahfuz-oronno/pathshala/internal/server"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	addr := flag.String("addr", "", "listen address (default from config)")
	flag.Parse()

	if err := srv.Run(*addr, *cfgPath); err != nil {
		log.Fatalf("api server: %v", err)
	}
}
