// File: cmd/estimatectl/main.go

// estimatectl submits one estimation job and waits for the result.
//
//	estimatectl -server http://localhost:8080 -ticket LIST-42 \
//	  -summary "Add pagination" -board 7 -repos acme/list-api,acme/list-web
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sprint-estimator/internal/client"
	"sprint-estimator/internal/domain/model"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "estimation server base URL")
	password := flag.String("password", "", "login password (empty when auth is disabled)")
	ticket := flag.String("ticket", "", "target ticket key (required)")
	summary := flag.String("summary", "", "target ticket summary (required)")
	description := flag.String("description", "", "target ticket description")
	board := flag.Int("board", 0, "Jira board id (required)")
	sprints := flag.Int("sprints", 0, "number of past sprints to use")
	repos := flag.String("repos", "", "comma-separated owner/repo list")
	modelID := flag.String("model", "", "model id, e.g. gemini-2.0-flash or gpt-4o")
	interval := flag.Duration("interval", 2*time.Second, "poll interval")
	flag.Parse()

	if *ticket == "" || *summary == "" || *board <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(*server)
	c.PollInterval = *interval

	if *password != "" {
		if err := c.Login(ctx, *password); err != nil {
			log.Fatalf("login: %v", err)
		}
	}

	req := model.EstimationRequest{
		TicketKey:         *ticket,
		TicketSummary:     *summary,
		TicketDescription: *description,
		BoardID:           *board,
		SprintCount:       *sprints,
		Model:             *modelID,
	}
	if *repos != "" {
		req.Repositories = strings.Split(*repos, ",")
	}

	jobID, err := c.StartEstimation(ctx, req)
	if err != nil {
		log.Fatalf("start: %v", err)
	}
	fmt.Fprintf(os.Stderr, "job %s started, polling...\n", jobID)

	job, err := c.PollJob(ctx, jobID)
	if err != nil {
		log.Fatalf("poll: %v", err)
	}
	if job.Status == model.JobError {
		log.Fatalf("estimation failed: %s", job.Error)
	}

	out, err := json.MarshalIndent(job.Result, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))
}
