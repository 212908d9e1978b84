package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"roastbot-api/internal/config"
	"roastbot-api/internal/device"
)

func main() {
	roastName := flag.String("roast", "", "trigger a roast for this name and exit")
	userID := flag.String("user", "", "user whose roast config to use (defaults to USER_ID)")
	voice := flag.String("voice", device.DefaultVoice, "voice alias or ElevenLabs voice ID")
	format := flag.String("format", "", "audio format for triggered roasts (mp3 or pcm)")
	listVoices := flag.Bool("list-voices", false, "print known voice aliases and exit")
	flag.Parse()

	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *listVoices {
		for alias, id := range device.VoiceAliases() {
			fmt.Printf("%-8s %s\n", alias, id)
		}
		return
	}

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if *roastName != "" {
		triggerRoast(cfg, *userID, *roastName, *voice, *format)
		return
	}

	log.Info().
		Str("server", cfg.DeviceServerURL).
		Str("stream_id", cfg.DeviceStreamID).
		Msg("Starting device agent")

	agent, err := device.NewAgent(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create device agent")
	}
	agent.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")
	agent.Stop()
}

// triggerRoast runs the one-shot roast path: ask the backend for a roast
// and save the audio, or surface the text fallback when synthesis failed.
func triggerRoast(cfg *config.Config, userID, name, voice, format string) {
	if userID == "" {
		userID = cfg.DeviceUserID
	}
	if userID == "" {
		log.Fatal().Msg("No user configured, set USER_ID or pass -user")
	}

	client := device.NewClient(cfg.DeviceServerURL, cfg.DeviceAPIKey)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DeviceTriggerTimeout)
	defer cancel()

	log.Info().Str("name", name).Str("voice", voice).Msg("Requesting roast")
	result, err := client.TriggerRoast(ctx, userID, name, voice, format)
	if err != nil {
		log.Fatal().Err(err).Msg("Roast request failed")
	}

	if result.Fallback != nil {
		log.Warn().Str("error", result.Fallback.Error).Msg("No audio, text only")
		fmt.Println(result.Fallback.Roast)
		return
	}

	if err := os.WriteFile(cfg.DeviceAudioFile, result.Audio, 0644); err != nil {
		log.Fatal().Err(err).Msg("Failed to save audio")
	}
	log.Info().
		Str("file", cfg.DeviceAudioFile).
		Int("bytes", len(result.Audio)).
		Str("content_type", result.ContentType).
		Msg("Roast audio saved")
}
