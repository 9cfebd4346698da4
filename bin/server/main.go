package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/zond/mudkit"
	"github.com/zond/mudkit/server"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	config := server.DefaultConfig()

	flag.StringVar(&config.SSHAddr, "ssh", config.SSHAddr, "Where to listen to SSH connections.")
	flag.StringVar(&config.Dir, "dir", config.Dir, "Where to save database and settings.")
	flag.StringVar(&config.ClothingPath, "clothing", "", "YAML or JSON file with clothing rules.")
	dotenv := flag.String("env", "", "Comma separated dotenv files with the Discord relay config, default .env if it exists.")
	flag.BoolVar(&config.NoRelay, "norelay", false, "Don't relay channels to Discord.")
	logPath := flag.String("log", "", "File to log to in addition to stderr, rotated at 100MB.")

	flag.Parse()

	if *dotenv != "" {
		config.DotEnv = strings.Split(*dotenv, ",")
	}
	if *logPath != "" {
		logFile := &lumberjack.Logger{
			Filename:   *logPath,
			MaxSize:    100,
			MaxBackups: 5,
		}
		defer logFile.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, config)
	if err != nil {
		log.Fatalf("%v\n%s", err, mudkit.StackTrace(err))
	}
	go func() {
		<-ctx.Done()
		log.Println("Shutting down")
		if err := srv.Close(); err != nil {
			log.Printf("%v\n%s", err, mudkit.StackTrace(err))
		}
	}()
	if err := srv.Start(); err != nil {
		log.Fatalf("%v\n%s", err, mudkit.StackTrace(err))
	}
	srv.Close()
}
