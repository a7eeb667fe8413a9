package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mikey/phish-guard/internal/features"
)

const urlPromptFormat = `You are a phishing detection system. Decide whether the following URL leads to a phishing site.
Lexical features of the URL:
%s
URL: %s

Respond with a JSON object containing:
- prediction: integer, 1 if the URL is phishing, 0 if it is safe

Respond only with the JSON object and nothing else.`

const emailPromptFormat = `You are a phishing detection system. The following email text has been lowercased and stripped of links, addresses, digits and punctuation.
Estimate how likely it is to be a phishing email.

Email text:
%s

Respond with a JSON object containing:
- phishing_probability: number between 0 and 1 (higher means more likely to be phishing)

Respond only with the JSON object and nothing else.`

// BuildURLPrompt formats the LLM prompt for a URL and its feature vector
func BuildURLPrompt(url string, vec features.OrderedVector) string {
	var sb strings.Builder
	for i, name := range vec.Names {
		sb.WriteString("- ")
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(strconv.FormatFloat(vec.Values[i], 'g', 6, 64))
		sb.WriteString("\n")
	}
	return fmt.Sprintf(urlPromptFormat, sb.String(), url)
}

// BuildEmailPrompt formats the LLM prompt for normalized email text
func BuildEmailPrompt(text string) string {
	return fmt.Sprintf(emailPromptFormat, text)
}

// ExtractJSON decodes a JSON object from an LLM reply, tolerating text around it
func ExtractJSON(reply string, v any) error {
	err := json.Unmarshal([]byte(reply), v)
	if err == nil {
		return nil
	}

	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return fmt.Errorf("failed to extract JSON from LLM response: %w", err)
	}

	if err := json.Unmarshal([]byte(reply[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return nil
}

// ParseURLPrediction reads {"prediction": 0|1} from an LLM reply
func ParseURLPrediction(reply string) (int, error) {
	var resp struct {
		Prediction *int `json:"prediction"`
	}
	if err := ExtractJSON(reply, &resp); err != nil {
		return 0, err
	}
	if resp.Prediction == nil {
		return 0, errors.New("LLM response has no prediction")
	}
	if *resp.Prediction != 0 && *resp.Prediction != 1 {
		return 0, fmt.Errorf("LLM prediction out of range: %d", *resp.Prediction)
	}
	return *resp.Prediction, nil
}

// ParseEmailProbability reads {"phishing_probability": p} from an LLM reply
func ParseEmailProbability(reply string) (float64, error) {
	var resp struct {
		PhishingProbability *float64 `json:"phishing_probability"`
	}
	if err := ExtractJSON(reply, &resp); err != nil {
		return 0, err
	}
	if resp.PhishingProbability == nil {
		return 0, errors.New("LLM response has no phishing_probability")
	}
	p := *resp.PhishingProbability
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("LLM phishing probability out of range: %v", p)
	}
	return p, nil
}
