package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"time"

	"assessment-sync-be/pkg/syncclient"

	"github.com/fatih/color"
)

// Manual probe for the sync endpoint: connects, subscribes to a course,
// reports presence, and prints every refetch hint and status transition.
// With -assessment and -outcome set it also pushes a random score through
// the durable save path every interval, so killing the server mid-run shows
// the queue absorbing writes and draining on reconnect.
func main() {
	var (
		endpoint    = flag.String("url", "ws://localhost:3000/api/sync/ws", "sync endpoint")
		apiBase     = flag.String("api", "http://localhost:3000", "REST base url for save replay")
		token       = flag.String("token", os.Getenv("SYNC_TOKEN"), "bearer token")
		courseID    = flag.String("course", "", "course scope to subscribe to")
		participant = flag.String("participant", "", "participant to report presence on")
		selfID      = flag.String("self", "probe", "assessor id to present as")
		assessment  = flag.String("assessment", "", "assessment to save probe scores against")
		outcome     = flag.String("outcome", "", "outcome id for the probe scores")
		queueDir    = flag.String("queue", "", "queue directory (empty for in-memory)")
		saveEvery   = flag.Duration("save-every", 15*time.Second, "interval between probe saves")
	)
	flag.Parse()

	if *courseID == "" {
		log.Fatal("missing -course")
	}

	statusColor := map[syncclient.Status]*color.Color{
		syncclient.StatusConnected:    color.New(color.FgGreen),
		syncclient.StatusConnecting:   color.New(color.FgYellow),
		syncclient.StatusReconnecting: color.New(color.FgYellow),
		syncclient.StatusDisconnected: color.New(color.FgRed),
	}

	client := syncclient.NewClient(syncclient.Options{
		URL:    *endpoint,
		Token:  *token,
		SelfID: *selfID,
		OnStatus: func(s syncclient.Status) {
			statusColor[s].Printf("status: %s\n", s)
		},
		OnRefetch: func(table, recordID string) {
			color.Cyan("refetch: %s %s", table, recordID)
		},
		OnConnect: func(ctx context.Context) {
			color.Green("connected, subscription replayed")
		},
	})

	var queue *syncclient.Queue
	var err error
	if *queueDir == "" {
		queue, err = syncclient.OpenInMemoryQueue(3)
	} else {
		queue, err = syncclient.OpenQueue(*queueDir, 3)
	}
	if err != nil {
		log.Fatalf("open queue: %v", err)
	}
	defer queue.Close()

	// Replays land on the idempotent score upsert, so a retried entry is
	// harmless.
	manager := syncclient.NewManager(client, queue, func(ctx context.Context, change syncclient.PendingChange) error {
		url := fmt.Sprintf("%s/api/assessments/%s/scores", *apiBase, *assessment)
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(change.Payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+*token)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("save rejected: %s", resp.Status)
		}
		return nil
	}, syncclient.ManagerOptions{})
	defer manager.Close()

	if err := client.Subscribe(*courseID, nil); err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	if *participant != "" {
		if err := client.TrackPresence("Probe", *participant, ""); err != nil {
			log.Fatalf("presence: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, a := range client.ActiveAssessors(*participant, "") {
					color.Magenta("active: %s on %s (%s)", a.AssessorName, a.ParticipantID, a.ComponentID)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if *assessment != "" && *outcome != "" {
		go func() {
			ticker := time.NewTicker(*saveEvery)
			defer ticker.Stop()
			key := "score/" + *outcome
			for {
				select {
				case <-ticker.C:
					value := rand.Intn(101)
					payload, _ := json.Marshal(map[string]interface{}{
						"outcome_id": *outcome,
						"value":      value,
					})
					manager.Save(key, syncclient.PendingChange{
						Kind:    syncclient.KindScore,
						Action:  syncclient.ActionUpsert,
						Payload: payload,
					})
					pending, _ := manager.PendingCount()
					color.Blue("save: value=%d state=%s pending=%d", value, manager.SaveState(key), pending)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("sync client stopped: %v", err)
	}
}
