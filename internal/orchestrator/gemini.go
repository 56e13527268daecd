package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shipsense/internal/fleet"
	"shipsense/internal/logging"
)

// GeminiInterpreter reads utterances with the Gemini API and falls
// back to the rule interpreter whenever the model is unreachable or
// returns something unusable. The turn never fails because the LLM
// did.
type GeminiInterpreter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	rules      RuleInterpreter
}

// NewGeminiInterpreter creates an LLM-backed interpreter.
func NewGeminiInterpreter(apiKey, baseURL, model string, timeout time.Duration) *GeminiInterpreter {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	return &GeminiInterpreter{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// llmReading is the JSON contract the model is asked to fill.
type llmReading struct {
	Intent  string `json:"intent"`
	Vessels []struct {
		IMO  int    `json:"imo"`
		Name string `json:"name"`
	} `json:"vessels"`
	Metrics []string `json:"metrics"`
	Start   string   `json:"start"`
	End     string   `json:"end"`
}

// Interpret implements Interpreter.
func (g *GeminiInterpreter) Interpret(ctx context.Context, utterance string, hints Hints) (Interpretation, error) {
	interp, err := g.interpretLLM(ctx, utterance, hints)
	if err != nil {
		logging.APIError("gemini interpretation failed, using rules: %v", err)
		return g.rules.Interpret(ctx, utterance, hints)
	}
	return interp, nil
}

func (g *GeminiInterpreter) interpretLLM(ctx context.Context, utterance string, hints Hints) (Interpretation, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: g.prompt(utterance, hints)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0,
		},
	})
	if err != nil {
		return Interpretation{}, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Interpretation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Interpretation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Interpretation{}, fmt.Errorf("gemini returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Interpretation{}, fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return Interpretation{}, fmt.Errorf("gemini returned no candidates")
	}

	return g.toInterpretation(parsed.Candidates[0].Content.Parts[0].Text, hints)
}

func (g *GeminiInterpreter) prompt(utterance string, hints Hints) string {
	var vessels strings.Builder
	for _, v := range hints.Vessels {
		fmt.Fprintf(&vessels, "- %s (IMO %d)\n", v.Name, v.IMO)
	}
	metrics := make([]string, len(fleet.AllMetrics))
	for i, m := range fleet.AllMetrics {
		metrics[i] = string(m)
	}

	return fmt.Sprintf(`You extract structured queries about ship performance data.

Known vessels:
%s
Known metrics: %s
Current time: %s

Read the user's message and answer with ONLY a JSON object:
{"intent": "fetch"|"compare"|"summarize"|"list"|"unknown",
 "vessels": [{"imo": 0, "name": ""}],
 "metrics": ["..."],
 "start": "RFC3339 or empty",
 "end": "RFC3339 or empty"}

Leave out anything the message does not state. Use "fetch" for
showing or plotting data over time, "summarize" for averages and
statistics, "compare" for comparisons, "list" for fleet listings.

User message: %q`, vessels.String(), strings.Join(metrics, ", "),
		hints.Now.Format(time.RFC3339), utterance)
}

func (g *GeminiInterpreter) toInterpretation(text string, hints Hints) (Interpretation, error) {
	var reading llmReading
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &reading); err != nil {
		return Interpretation{}, fmt.Errorf("model output is not valid JSON: %w", err)
	}

	interp := Interpretation{}
	switch reading.Intent {
	case "fetch":
		interp.Intent = IntentFetch
	case "compare":
		interp.Intent = IntentCompare
	case "summarize":
		interp.Intent = IntentSummarize
	case "list":
		interp.Intent = IntentList
	default:
		interp.Intent = IntentUnknown
	}

	for _, v := range reading.Vessels {
		ref := VesselRef{IMO: v.IMO, Name: v.Name}
		if ref.IMO == 0 && ref.Name != "" {
			for _, known := range hints.Vessels {
				if strings.EqualFold(known.Name, ref.Name) {
					ref.IMO = known.IMO
					break
				}
			}
		}
		if ref.IMO != 0 {
			interp.Vessels = append(interp.Vessels, ref)
		}
	}
	for _, m := range reading.Metrics {
		metric, err := fleet.ParseMetric(m)
		if err != nil {
			continue
		}
		interp.Metrics = append(interp.Metrics, metric)
	}
	if t, err := time.Parse(time.RFC3339, reading.Start); err == nil {
		interp.Start = t
	}
	if t, err := time.Parse(time.RFC3339, reading.End); err == nil {
		interp.End = t
	}
	return interp, nil
}
