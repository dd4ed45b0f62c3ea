package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Model proposes moves by prompting a hosted language model with the current
// position and the list of legal moves, then picking the legal move the reply
// names.
type Model struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	name    string
	timeout time.Duration
}

func NewModel(baseURL, apiKey, name string) *Model {
	return &Model{
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         20 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: time.Minute,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		name:    name,
		timeout: 25 * time.Second,
	}
}

type modelRequest struct {
	Contents []modelContent `json:"contents"`
}

type modelContent struct {
	Parts []modelPart `json:"parts"`
}

type modelPart struct {
	Text string `json:"text"`
}

type modelResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (m *Model) ProposeMove(ctx context.Context, movesUCI []string) (string, error) {
	game, err := reconstruct(movesUCI)
	if err != nil {
		return "", err
	}
	legal := legalMovesUCI(game)
	if len(legal) == 0 {
		return "", fmt.Errorf("no legal moves in position")
	}

	prompt := fmt.Sprintf(
		"You are playing chess. The current position in FEN is:\n%s\n\n"+
			"The legal moves in UCI notation are: %s\n\n"+
			"Reply with exactly one of the legal moves and nothing else.",
		game.FEN(), strings.Join(legal, ", "),
	)

	body, err := json.Marshal(modelRequest{
		Contents: []modelContent{{Parts: []modelPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode model request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", m.baseURL, m.name, m.apiKey))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	timeout := m.timeout
	if d, ok := ctx.Deadline(); ok {
		if until := time.Until(d); until < timeout {
			timeout = until
		}
	}
	if err := m.client.DoTimeout(req, resp, timeout); err != nil {
		return "", fmt.Errorf("model request: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("model request: unexpected status %d", resp.StatusCode())
	}

	var parsed modelResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model response contained no candidates")
	}

	reply := parsed.Candidates[0].Content.Parts[0].Text
	return pickLegal(reply, legal)
}

// pickLegal scans the raw model reply for the first token matching a legal
// move. Models often wrap the move in punctuation or prose.
func pickLegal(reply string, legal []string) (string, error) {
	legalSet := make(map[string]struct{}, len(legal))
	for _, mv := range legal {
		legalSet[mv] = struct{}{}
	}
	for _, tok := range strings.Fields(reply) {
		tok = strings.ToLower(strings.Trim(tok, ".,:;\"'`()[]{}"))
		if _, ok := legalSet[tok]; ok {
			return tok, nil
		}
	}
	return "", fmt.Errorf("model reply %q names no legal move", strings.TrimSpace(reply))
}
