package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skypro1111/audio-transcriber-service/internal/client"
)

func main() {
	serverURL := flag.String("server", "http://localhost:3000", "Transcription server base URL")
	timeout := flag.Duration("timeout", 15*time.Minute, "Request timeout")
	asJSON := flag.Bool("json", false, "Print the raw JSON response")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <audio file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	c, err := client.NewClient(client.Config{BaseURL: *serverURL, Timeout: *timeout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create client: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := c.TranscribeFile(ctx, flag.Arg(0))
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.RequestID != "" {
			fmt.Fprintf(os.Stderr, "Transcription failed (request %s): %v\n", apiErr.RequestID, err)
		} else {
			fmt.Fprintf(os.Stderr, "Transcription failed: %v\n", err)
		}
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(resp)
		return
	}

	fmt.Printf("Transcript:\n%s\n\nSummary:\n%s\n", resp.Transcript, resp.Summary)
}
