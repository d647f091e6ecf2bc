package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// minBankConfidence is the threshold below which an identified issuer is
// reported as unknown.
const minBankConfidence = 0.5

// Engine adapts a ChatClient to Provider and BankIdentifier.
type Engine struct {
	client ChatClient
	logger *slog.Logger
}

func NewEngine(client ChatClient, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{client: client, logger: logger}
}

func (e *Engine) Model() string { return e.client.Model() }

// Infer asks the model for the transactions in text and returns its JSON answer.
func (e *Engine) Infer(ctx context.Context, text string) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	e.logger.Info("llm.extract.start",
		"req_id", rid,
		"backend", e.client.Backend(),
		"model", e.client.Model(),
		"text_len", len(text),
	)

	content, err := e.client.Chat(ctx, extractionSystemPrompt, BuildExtractionPrompt(text))
	if err != nil {
		e.logger.Error("llm.extract.failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	content = StripCodeFences(content)
	if content == "" {
		return nil, fmt.Errorf("empty response from %s", e.client.Backend())
	}

	e.logger.Info("llm.extract.ok", "req_id", rid, "bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds())
	return []byte(content), nil
}

// IdentifyBank names the issuer of a statement. Low-confidence answers come
// back as constants.UnknownBank without error.
func (e *Engine) IdentifyBank(ctx context.Context, firstPage string) (BankResult, error) {
	unknown := BankResult{Name: constants.UnknownBank}
	if strings.TrimSpace(firstPage) == "" {
		return unknown, nil
	}

	content, err := e.client.Chat(ctx, bankSystemPrompt, BuildBankPrompt(firstPage))
	if err != nil {
		return unknown, err
	}
	var res BankResult
	if err := json.Unmarshal([]byte(StripCodeFences(content)), &res); err != nil {
		return unknown, fmt.Errorf("decode bank answer: %w", err)
	}
	if res.Confidence < minBankConfidence {
		return BankResult{Name: constants.UnknownBank, Confidence: res.Confidence}, nil
	}
	res.Name = constants.CanonicalBank(res.Name)
	return res, nil
}
