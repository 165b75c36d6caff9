package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"scholarship-agent/internal/app"
	"scholarship-agent/internal/config"
	"scholarship-agent/internal/domain"
	"scholarship-agent/internal/logger"
)

var (
	language = flag.String("lang", "en", "Reply language (en, te, hi)")
	envFile  = flag.String("env", ".env", "Optional env file")
	logLevel = flag.String("log-level", "warn", "Log level for diagnostics on stderr")
)

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(*logLevel, "console")
	defer func() { _ = log.Sync() }()

	a, err := app.New(ctx, cfg, log, app.Deps{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	chat := a.Chat

	s, err := chat.StartSession(*language)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = chat.EndSession(s.ID()) }()

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Println(boldGreen("SamartAI scholarship assistant"))
	fmt.Printf("Mode: %s, catalog %s\n", boldCyan(string(chat.Mode())), boldCyan(chat.CatalogVersion()))
	fmt.Println("Type a message and press Enter. /voice toggles voice input, /quit exits.")
	if b := s.Banner(); b != "" {
		fmt.Println(yellow("! " + b))
	}
	for _, m := range s.Messages() {
		printMessage(m, boldCyan, yellow, faint)
	}
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for ctx.Err() == nil {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(input) {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/voice":
			on, err := chat.ToggleVoiceInput(s)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			if on {
				fmt.Println(faint("(voice input on: type what you would say)"))
			} else {
				fmt.Println(faint("(voice input off)"))
			}
			continue
		}

		msg, err := chat.SendText(ctx, s, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		printMessage(msg, boldCyan, yellow, faint)
		fmt.Println()
	}
}

func printMessage(m domain.ChatMessage, ai, system, faint func(a ...interface{}) string) {
	switch m.Type {
	case domain.MessageAI:
		fmt.Println(ai("SamartAI: ") + m.Text)
	case domain.MessageSystem:
		fmt.Println(system(m.Text))
	default:
		return
	}
	for _, src := range m.Sources {
		fmt.Println(faint("  source: " + src.Title + " " + src.URI))
	}
	if m.FunctionCall != nil {
		fmt.Println(faint(fmt.Sprintf("  searched: %+v", *m.FunctionCall)))
	}
}
