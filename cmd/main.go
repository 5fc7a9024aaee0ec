package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"inventory-agent/handler"
	"inventory-agent/internal/integrations/openai"
	"inventory-agent/internal/integrations/paramstore"
	"inventory-agent/internal/integrations/wppconnect"
	"inventory-agent/internal/repository"
	"inventory-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	tableName := mustEnv("TABLE_NAME")
	paramPrefix := strings.TrimRight(mustEnv("PARAM_PREFIX"), "/")
	wppBaseURL := mustEnv("WPP_BASE_URL")
	wppSession := mustEnv("WPP_SESSION")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	dynamoClient := awsdynamodb.NewFromConfig(cfg)

	pendingStore, err := repository.NewPendingStore(dynamoClient, tableName)
	if err != nil {
		slog.Error("failed to create pending store", "err", err)
		os.Exit(1)
	}
	recordStore, err := repository.NewRecordStore(dynamoClient, tableName)
	if err != nil {
		slog.Error("failed to create record store", "err", err)
		os.Exit(1)
	}
	conversationLog, err := repository.NewConversationLog(dynamoClient, tableName)
	if err != nil {
		slog.Error("failed to create conversation log", "err", err)
		os.Exit(1)
	}

	openaiClient, err := openai.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}
	wppClient, err := wppconnect.NewClient(ssmClient, paramPrefix, wppBaseURL, wppSession)
	if err != nil {
		slog.Error("failed to create WPPConnect client", "err", err)
		os.Exit(1)
	}

	// ---- Pipeline ----
	log := slog.Default()
	finalizer, err := usecase.NewTransactionFinalizer(recordStore, log)
	if err != nil {
		slog.Error("failed to create finalizer", "err", err)
		os.Exit(1)
	}
	assembler, err := usecase.NewAssembler(pendingStore, finalizer, log)
	if err != nil {
		slog.Error("failed to create assembler", "err", err)
		os.Exit(1)
	}
	tools, err := usecase.NewToolRegistry(assembler, recordStore, log)
	if err != nil {
		slog.Error("failed to create tool registry", "err", err)
		os.Exit(1)
	}
	agent, err := usecase.NewAgent(ssmClient, openaiClient, tools, paramPrefix, log)
	if err != nil {
		slog.Error("failed to create agent", "err", err)
		os.Exit(1)
	}
	service, err := usecase.NewMessageService(
		usecase.NewIntentMatcher(log),
		pendingStore,
		assembler,
		agent,
		wppClient,
		conversationLog,
		log,
	)
	if err != nil {
		slog.Error("failed to create message service", "err", err)
		os.Exit(1)
	}

	webhookKey, err := ssmClient.GetParameter(ctx, paramPrefix+"/webhook-key")
	if err != nil {
		slog.Error("failed to load webhook key", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(service, webhookKey, log)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
