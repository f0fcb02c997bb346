// api/logbus/logbus.go
package logbus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"

	reconnectDelay = 5 * time.Second
	publishTimeout = 5 * time.Second
)

// publisher is the slice of kafka.Writer the logger relies on.
type publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Logger mirrors request/response log entries to the message bus for
// centralized observability. Delivery is best effort: every entry is always
// written to the local console, and bus publication happens on a background
// goroutine so it can never delay or fail a request. When the bus is down the
// logger keeps retrying the connection at a fixed interval; entries that
// overflow the buffer in the meantime are dropped.
type Logger struct {
	serviceName string
	brokers     []string
	topic       string

	entries chan map[string]interface{}
	done    chan struct{}

	// newWriter is swappable so tests can capture published entries.
	newWriter func() publisher
}

func New(brokers []string, topic, serviceName string) *Logger {
	l := &Logger{
		serviceName: serviceName,
		brokers:     brokers,
		topic:       topic,
		entries:     make(chan map[string]interface{}, 256),
		done:        make(chan struct{}),
	}
	l.newWriter = func() publisher {
		return &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		}
	}
	go l.run()
	return l
}

func (l *Logger) Info(url, correlationID, message string, extra map[string]interface{}) {
	l.Log(LevelInfo, url, correlationID, message, extra)
}

func (l *Logger) Warn(url, correlationID, message string, extra map[string]interface{}) {
	l.Log(LevelWarn, url, correlationID, message, extra)
}

func (l *Logger) Error(url, correlationID, message string, extra map[string]interface{}) {
	l.Log(LevelError, url, correlationID, message, extra)
}

// Log emits one entry to the console and queues it for bus publication.
func (l *Logger) Log(level, url, correlationID, message string, extra map[string]interface{}) {
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05.000")

	log.Printf("%s %s %s Correlation: %s [%s] - %s",
		timestamp, level, url, correlationID, l.serviceName, message)

	entry := map[string]interface{}{
		"timestamp":     timestamp,
		"level":         level,
		"url":           url,
		"correlationId": correlationID,
		"serviceName":   l.serviceName,
		"message":       message,
	}
	for k, v := range extra {
		entry[k] = v
	}

	select {
	case l.entries <- entry:
	default:
		// Bus backlog is full; the console line above is all we keep.
	}
}

// Close stops the background publisher after draining queued entries.
func (l *Logger) Close() {
	close(l.entries)
	<-l.done
}

func (l *Logger) run() {
	defer close(l.done)

	w := l.newWriter()
	defer func() { w.Close() }()

	for entry := range l.entries {
		body, err := json.Marshal(entry)
		if err != nil {
			log.Printf("Failed to encode log entry: %v", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = w.WriteMessages(ctx, kafka.Message{Value: body, Time: time.Now()})
		cancel()
		if err != nil {
			log.Printf("Failed to send log to bus: %v", err)
			w.Close()
			w = l.awaitBus()
		}
	}
}

// awaitBus blocks until a broker accepts a connection again, then hands back
// a fresh writer. Retries forever at a fixed delay.
func (l *Logger) awaitBus() publisher {
	for {
		time.Sleep(reconnectDelay)
		conn, err := kafka.Dial("tcp", l.brokers[0])
		if err == nil {
			conn.Close()
			log.Printf("Log bus connection restored")
			return l.newWriter()
		}
		log.Printf("Log bus still unavailable: %v", err)
	}
}
