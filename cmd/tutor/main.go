package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"fluently-backend/internal/config"
	"fluently-backend/internal/lesson"
	"fluently-backend/internal/prompts"
	"fluently-backend/internal/transport"
)

// echoStreamer prints each assistant fragment as it arrives.
type echoStreamer struct {
	next  lesson.Streamer
	print func(string)
}

func (e echoStreamer) StreamChat(ctx context.Context, req transport.Request) error {
	onDelta := req.OnDelta
	req.OnDelta = func(chunk string) {
		e.print(chunk)
		if onDelta != nil {
			onDelta(chunk)
		}
	}
	return e.next.StreamChat(ctx, req)
}

func main() {
	cfg := config.LoadTutor()

	chatURL := flag.String("url", cfg.ChatURL, "Chat proxy endpoint")
	mode := flag.String("mode", cfg.Mode, "Lesson mode: tutor or feedback")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nShutting down...")
		cancel()
		os.Exit(0)
	}()

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	client := transport.NewClient(*chatURL, cfg.APIKey, nil)
	session := lesson.NewSession(
		echoStreamer{next: client, print: func(s string) { fmt.Print(s) }},
		lesson.WithMode(prompts.Normalize(*mode)),
		lesson.WithNotifier(func(err error) {
			fmt.Fprintln(os.Stderr, red("Error: "+err.Error()))
		}),
	)

	fmt.Println(boldGreen("Fluently AI Tutor"))
	fmt.Printf("Mode: %s\n", boldCyan(session.Mode()))
	fmt.Println("Type your message and press Enter. Type 'exit' or press Ctrl+C to quit.")
	fmt.Println()
	fmt.Println("Try one of these to get started:")
	for i, p := range lesson.StarterPrompts {
		fmt.Printf("  %s %s\n", faint(strconv.Itoa(i+1)+"."), p)
	}
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		text := scanner.Text()

		trimmed := strings.TrimSpace(text)
		if strings.ToLower(trimmed) == "exit" {
			break
		}
		if trimmed == "" {
			continue
		}
		if session.State() == lesson.StateEmpty {
			text = starterPrompt(text)
		}

		session.SetInput(text)
		fmt.Print(boldCyan("Tutor: "))
		if err := session.SendInput(ctx); err == nil {
			fmt.Println()
		}
		fmt.Println()
	}
}

// starterPrompt expands "1".."3" into the matching starter prompt.
func starterPrompt(text string) string {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > len(lesson.StarterPrompts) {
		return text
	}
	return lesson.StarterPrompts[n-1]
}
