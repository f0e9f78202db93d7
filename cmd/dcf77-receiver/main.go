// Command dcf77-receiver samples a DCF77 radio module on a GPIO pin, decodes
// the transmitted time signal, and publishes validated frames to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/dcf77-receiver/internal/config"
	"github.com/sweeney/dcf77-receiver/internal/dcf77"
	"github.com/sweeney/dcf77-receiver/internal/gpio"
	"github.com/sweeney/dcf77-receiver/internal/metrics"
	"github.com/sweeney/dcf77-receiver/internal/mqtt"
	"github.com/sweeney/dcf77-receiver/internal/status"
	"github.com/sweeney/dcf77-receiver/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (flags override file values)")
	chip := flag.String("chip", gpio.DefaultChip, "GPIO chip device name")
	pin := flag.Int("pin", gpio.DefaultPin, "GPIO line offset of the receiver output")
	invert := flag.Bool("invert", false, "Invert the input level (active-low modules)")
	sampleMs := flag.Int("sample-ms", 10, "Sample period in milliseconds")
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address")
	clientID := flag.String("client-id", "dcf77-receiver", "MQTT client ID")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	printBits := flag.Bool("print-bits", false, "Log every decoded bit")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		cfg = loaded
	}
	applyFlagOverrides(flag.CommandLine, cfg, chip, pin, invert, sampleMs, broker, clientID, heartbeat, httpAddr)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *printBits); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyFlagOverrides copies explicitly set flags onto the config, so a config
// file can be partially overridden from the command line.
func applyFlagOverrides(fs *flag.FlagSet, cfg *config.Config, chip *string, pin *int, invert *bool, sampleMs *int, broker, clientID *string, heartbeat *time.Duration, httpAddr *string) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chip":
			cfg.Receiver.Chip = *chip
		case "pin":
			cfg.Receiver.Pin = *pin
		case "invert":
			cfg.Receiver.Invert = *invert
		case "sample-ms":
			cfg.Receiver.SamplePeriodMs = *sampleMs
		case "broker":
			cfg.MQTT.Broker = *broker
		case "client-id":
			cfg.MQTT.ClientID = *clientID
		case "heartbeat":
			cfg.MQTT.HeartbeatSeconds = int(heartbeat.Seconds())
		case "http":
			cfg.HTTP.Addr = *httpAddr
			cfg.HTTP.Enabled = *httpAddr != ""
		}
	})
}

func run(cfg *config.Config, printBits bool) error {
	// Initialize GPIO
	reader, err := gpio.NewRealReader(cfg.Receiver.Chip, cfg.Receiver.Pin, cfg.Receiver.Invert)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize metrics
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Initialize status tracker (before STARTUP so snapshot is available)
	httpAddr := ""
	if cfg.HTTP.Enabled {
		httpAddr = cfg.HTTP.Addr
	}
	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:        cfg.Receiver.Chip,
		Pin:         cfg.Receiver.Pin,
		Invert:      cfg.Receiver.Invert,
		SampleMs:    int64(cfg.Receiver.SamplePeriodMs),
		HeartbeatMs: cfg.MQTT.HeartbeatInterval().Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    httpAddr,
	})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Enabled {
		srv := web.New(cfg.HTTP.Addr, tracker, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: chip=%s pin=%d sample=%v broker=%s heartbeat=%v",
		cfg.Receiver.Chip, cfg.Receiver.Pin, cfg.Receiver.SamplePeriod(), cfg.MQTT.Broker, cfg.MQTT.HeartbeatInterval())

	ticker := time.NewTicker(cfg.Receiver.SamplePeriod())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	opts := loopOptions{
		SamplePeriod: cfg.Receiver.SamplePeriod(),
		Heartbeat:    cfg.MQTT.HeartbeatInterval(),
		PrintBits:    printBits,
	}
	return runLoop(reader, publisher, publisher, tracker, m, opts, time.Now, ticker.C, sigCh)
}

// loopOptions carries the run loop tunables.
type loopOptions struct {
	SamplePeriod time.Duration
	Heartbeat    time.Duration
	PrintBits    bool
}

func runLoop(reader gpio.Reader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, m *metrics.Metrics, opts loopOptions, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	decoder := dcf77.NewDecoder(dcf77.DefaultConfig())

	var counts status.Counts
	var lastLevel bool // reused when a read fails, keeps decoder timing intact
	var highRun int    // consecutive high samples of the current pulse
	synced := false

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			t := now()
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				snap.Now = t
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			high, err := reader.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				if m != nil {
					m.RecordPinReadError()
				}
				high = lastLevel
			}
			lastLevel = high
			if m != nil {
				m.SetSignalLevel(high)
			}

			if high {
				highRun++
			} else if highRun > 0 {
				if m != nil {
					m.ObservePulseWidth(time.Duration(highRun) * opts.SamplePeriod)
				}
				highRun = 0
			}

			decoder.SubmitSample(high)

			switch {
			case decoder.BitComplete():
				counts.Bits++
				if value, ok := decoder.LatestBit(); ok {
					if m != nil {
						m.RecordBit(value)
					}
					if opts.PrintBits {
						log.Printf("bit %2d: %s", decoder.Second()-1, bitString(value))
					}
				}

			case decoder.BitFaulty():
				counts.FaultyBits++
				if m != nil {
					m.RecordFaultyBit()
				}
				if opts.PrintBits {
					log.Printf("bit: unreadable, restarting frame")
				}

			case decoder.EndOfCycle():
				counts.Cycles++
				synced = true
				if m != nil {
					m.RecordCycle()
				}
				handleFrame(dcf77.NewTimeframe(decoder.RawFrame()), t, publisher, tracker, m, &counts)
			}

			// Check for heartbeat
			if tracker != nil && tracker.CheckHeartbeat(t, opts.Heartbeat) {
				tracker.Update(decoder.Second(), synced, counts)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				snap.Now = t
				log.Printf("heartbeat: uptime=%v bits=%d faulty=%d cycles=%d frames_ok=%d",
					snap.Uptime().Truncate(time.Second), counts.Bits, counts.FaultyBits, counts.Cycles, counts.FramesOK)

				hbEvent := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(decoder.Second(), synced, counts)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// handleFrame validates a completed frame and publishes it if the encoded
// time is consistent. Invalid frames are counted and logged, never published.
func handleFrame(frame dcf77.Timeframe, receivedAt time.Time, publisher mqtt.Publisher, tracker *status.Tracker, m *metrics.Metrics, counts *status.Counts) {
	decoded, err := frame.Time()
	if err != nil {
		counts.FramesBad++
		if m != nil {
			m.RecordFrame(false)
		}
		log.Printf("frame rejected: %v (raw=0x%016x)", err, uint64(frame))
		return
	}

	// The checked accessors cannot fail once Time() has succeeded.
	minutes, _ := frame.Minutes()
	hours, _ := frame.Hours()
	cest, _ := frame.CEST()
	date, _ := frame.Date()

	counts.FramesOK++
	if m != nil {
		m.RecordFrame(true)
		m.SetLastFrame(decoded)
	}
	if tracker != nil {
		tracker.SetLastFrame(status.FrameInfo{
			Time:       decoded,
			ReceivedAt: receivedAt,
			CEST:       cest,
			Raw:        uint64(frame),
		})
	}

	log.Printf("frame: %s (raw=0x%016x)", decoded.Format(time.RFC3339), uint64(frame))

	event := mqtt.TimeEvent{
		ReceivedAt: receivedAt,
		Time:       decoded,
		Date:       date,
		Hours:      hours,
		Minutes:    minutes,
		CEST:       cest,
		Raw:        uint64(frame),
	}
	if err := publisher.PublishFrame(event); err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure
	}
}

func bitString(value bool) string {
	if value {
		return "1"
	}
	return "0"
}
