package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"saccobot/internal/entities"
	"saccobot/internal/infrastructure"
	"saccobot/internal/interfaces"
	httpiface "saccobot/internal/interfaces/http"
	"saccobot/internal/repository"
	"saccobot/internal/usecases"
)

// consoleSender prints queued replies to stdout, standing in for a real
// messaging provider.
type consoleSender struct{}

func (consoleSender) SendMessage(to, content string) error {
	fmt.Printf("\n[async reply to %s] %s\n> ", to, content)
	return nil
}

// Local console channel: the full pipeline (command flows, knowledge
// lookup, dispatch queue) driven from stdin, for development without
// any messaging provider.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, using environment variables")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(zerolog.WarnLevel)

	pgClient, err := infrastructure.NewPostgresClient(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	userRepo := repository.NewUserRepository(pgClient.Pool)
	loanRepo := repository.NewLoanRepository(pgClient.Pool)
	profileRepo := repository.NewProfileRepository(pgClient.Pool)
	otpRepo := repository.NewOtpRepository(pgClient.Pool)

	faqPath := os.Getenv("FAQ_PATH")
	if faqPath == "" {
		faqPath = "faq.yml"
	}
	entries, err := repository.LoadFAQ(faqPath)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load FAQ, starting empty")
	}
	knowledge := repository.NewKnowledgeStore(entries, repository.NewTFIDFSimilarity())
	answerer := usecases.NewAnswerer(knowledge, usecases.DefaultThreshold)

	var aiClient interfaces.AIClient
	if gemini := infrastructure.NewGeminiClient(os.Getenv("GEMINI_API_KEY")); gemini.Configured() {
		aiClient = gemini
	}
	memory := infrastructure.NewConversationMemory(os.Getenv("REDIS_URL"), 6)
	engine := usecases.NewAnswerEngine(answerer, aiClient, memory)

	queue := infrastructure.NewDispatchQueue(infrastructure.DefaultAvgJobSeconds)
	dispatcher := usecases.NewDispatcher(queue, engine, 1)
	dispatcher.Start()
	defer dispatcher.Stop()

	sessions := infrastructure.NewSessionStore()
	otpService := usecases.NewOtpService(otpRepo, os.Getenv("OTP_SECRET"), usecases.DefaultOtpLifetime)
	router := usecases.NewCommandRouter(sessions, userRepo, loanRepo, profileRepo, otpService)

	chatID := "console:local"
	fmt.Println("Console channel ready. Type /help for commands, Ctrl-D to exit.")
	fmt.Print("> ")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			fmt.Print("> ")
			continue
		}

		reply, handled, err := router.Handle(chatID, httpiface.NormalizeCommand(text))
		if err != nil {
			fmt.Println("Sorry, something went wrong. Please try again.")
			log.Error().Err(err).Msg("command handling failed")
			fmt.Print("> ")
			continue
		}
		if handled {
			fmt.Println(reply)
			fmt.Print("> ")
			continue
		}

		receipt := queue.Enqueue(entities.DispatchJob{
			Platform: "console",
			To:       chatID,
			Kind:     entities.PayloadNeedsResolution,
			Text:     text,
			Sender:   consoleSender{},
		})
		fmt.Printf("Received (job %s). Estimated reply in ~%d seconds.\n> ", receipt.JobID, receipt.ETASeconds)
	}
}
