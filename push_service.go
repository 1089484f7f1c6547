package main

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// PushService mirrors logged actions to mobile dashboard subscribers via
// FCM. Entirely optional: without a credentials file it stays disabled.
type PushService struct {
	client *messaging.Client
	app    *firebase.App
	queue  chan PushMessage
}

type PushMessage struct {
	Topic string
	Title string
	Body  string
	Data  map[string]string
}

func NewPushService() *PushService {
	credFile := "serviceAccountKey.json"
	if _, err := os.Stat(credFile); os.IsNotExist(err) {
		log.Warn("⚠️ FCM: serviceAccountKey.json not found in root. Push notifications disabled.")
		return nil
	}

	opt := option.WithCredentialsFile(credFile)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		log.Warnf("⚠️ FCM: Error initializing app: %v", err)
		return nil
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		log.Warnf("⚠️ FCM: Error getting messaging client: %v", err)
		return nil
	}

	log.Info("✅ FCM Push Service Initialized (serviceAccountKey.json)")
	return &PushService{
		client: client,
		app:    app,
		queue:  make(chan PushMessage, 500),
	}
}

// StartWorker drains the queue, sending one message at a time.
func (ps *PushService) StartWorker() {
	log.Info("🚀 Push Worker Started")
	for msg := range ps.queue {
		message := &messaging.Message{
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data:  msg.Data,
			Topic: msg.Topic,
		}

		response, err := ps.client.Send(context.Background(), message)
		if err != nil {
			log.Warnf("⚠️ FCM Send Error: %v", err)
		} else {
			log.Infof("📲 Push Sent: %s (MSG ID: %s)", msg.Body, response)
		}
	}
}

// SendActionPush queues a push for a logged bot action. Non-blocking: when
// the queue is full the message is dropped rather than stalling the caller.
func (ps *PushService) SendActionPush(entry ActionEntry) {
	if ps == nil || ps.client == nil {
		return
	}

	select {
	case ps.queue <- PushMessage{
		Topic: "BOT_ACTIONS",
		Title: fmt.Sprintf("🤖 %s", entry.Type),
		Body:  entry.Description,
		Data: map[string]string{
			"type":      entry.Type,
			"timestamp": entry.Timestamp,
		},
	}:
	default:
		log.Warn("⚠️ Push Queue Full! Dropping action.")
	}
}
