package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/gurugsv7/frauddetection/internal/domain/claims"
)

// RemoteAnalyzer scores claims through an OpenAI-compatible chat completion
// endpoint. The model is asked for a strict JSON object; anything it returns
// beyond the known fields is dropped. Every failure path, transport, bad
// status, or unparseable output, collapses to the safe default result.
type RemoteAnalyzer struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewRemoteAnalyzer builds an analyzer against the given endpoint. baseURL
// may be empty for the public OpenAI API.
func NewRemoteAnalyzer(apiKey, baseURL, model string, logger zerolog.Logger) *RemoteAnalyzer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &RemoteAnalyzer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

const analysisSystemPrompt = `You are an insurance claim fraud detection assistant.
Analyze the submitted claim and respond with a JSON object containing exactly these fields:
{
  "fraudScore": number (0-100),
  "riskLevel": "low" | "medium" | "high",
  "fraudFlags": string[],
  "explanatoryReasons": string[]
}
Always provide detailed reasons for the risk score. For low risk, list the positive
indicators that make the claim appear genuine.`

// remoteResponse is the strict contract with the model. Unknown keys in the
// model output are ignored by the decoder.
type remoteResponse struct {
	FraudScore         int      `json:"fraudScore"`
	RiskLevel          string   `json:"riskLevel"`
	FraudFlags         []string `json:"fraudFlags"`
	ExplanatoryReasons []string `json:"explanatoryReasons"`
}

func (a *RemoteAnalyzer) Analyze(ctx context.Context, c *claims.Claim) claims.AnalysisResult {
	payload, err := json.Marshal(map[string]interface{}{
		"claim_id":       c.ID,
		"hospital":       c.HospitalName,
		"patient_name":   c.Patient.FirstName + " " + c.Patient.LastName,
		"insurance_id":   c.Patient.InsuranceID,
		"diagnosis_code": c.Treatment.DiagnosisCode,
		"procedure_code": c.Treatment.ProcedureCode,
		"provider_id":    c.Treatment.ProviderID,
		"description":    c.Treatment.Description,
		"claim_amount":   c.ClaimAmount,
		"document_count": len(c.Documents),
	})
	if err != nil {
		a.logger.Error().Err(err).Str("claim_id", c.ID).Msg("encoding claim for analysis")
		return DefaultResult()
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Claim submission:\n%s", payload)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("claim_id", c.ID).Msg("remote analysis failed, using default result")
		return DefaultResult()
	}
	if len(resp.Choices) == 0 {
		a.logger.Warn().Str("claim_id", c.ID).Msg("remote analysis returned no choices")
		return DefaultResult()
	}

	return a.parse(c.ID, resp.Choices[0].Message.Content)
}

// parse maps the model's JSON field-by-field into an AnalysisResult. A
// missing score is 0, missing arrays are empty, and an unrecognized risk
// level is recomputed from the score.
func (a *RemoteAnalyzer) parse(claimID, content string) claims.AnalysisResult {
	content = strings.TrimSpace(content)
	// Some models wrap JSON in a code fence despite instructions.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var rr remoteResponse
	if err := json.Unmarshal([]byte(content), &rr); err != nil {
		a.logger.Warn().Err(err).Str("claim_id", claimID).Msg("unparseable analysis response, using default result")
		return DefaultResult()
	}

	score := claims.ClampScore(rr.FraudScore)
	level := claims.RiskLevel(rr.RiskLevel)
	switch level {
	case claims.RiskLow, claims.RiskMedium, claims.RiskHigh:
	default:
		level = claims.RiskLevelForScore(score)
	}
	flags := rr.FraudFlags
	if flags == nil {
		flags = []string{}
	}
	explanations := rr.ExplanatoryReasons
	if explanations == nil {
		explanations = []string{}
	}
	return claims.AnalysisResult{
		Score:        score,
		RiskLevel:    level,
		Flags:        flags,
		Explanations: explanations,
	}
}
