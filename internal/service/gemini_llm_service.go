package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/lshigami/bandscore/config"
	"github.com/lshigami/bandscore/internal/model"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"google.golang.org/api/option"
)

const maxMediaBytes = 20 << 20

// GeminiLLMService asks Gemini for a band-style score and feedback on one essay or recording.
type GeminiLLMService interface {
	Available() bool
	ScoreAndFeedbackAnswer(ctx context.Context, question *model.Question, skill model.SkillType, answer *model.UserAnswer) (feedback string, score float64, err error)
}

type geminiLLMService struct {
	client *genai.GenerativeModel
	http   *http.Client
}

func NewGeminiLLMService(lc fx.Lifecycle, cfg *config.Config) (GeminiLLMService, error) {
	if cfg.Gemini.ApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Grading assistant will be unavailable.")
		return &geminiLLMService{}, nil
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.Gemini.ApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Info().Msg("Closing Gemini client")
			return client.Close()
		},
	})
	return &geminiLLMService{
		client: client.GenerativeModel(cfg.Gemini.Model),
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (s *geminiLLMService) Available() bool {
	return s.client != nil
}

// fetchMediaData downloads an answer recording or image and works out its MIME type.
func (s *geminiLLMService) fetchMediaData(ctx context.Context, mediaURL string) ([]byte, string, error) {
	if mediaURL == "" {
		return nil, "", fmt.Errorf("media URL is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid media URL %s: %w", mediaURL, err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch media from URL %s: %w", mediaURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch media (status %d) from URL %s", resp.StatusCode, mediaURL)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media data from URL %s: %w", mediaURL, err)
	}

	mimeType := mediaMIMEType(resp.Header.Get("Content-Type"), mediaURL)
	if mimeType == "" {
		return nil, "", fmt.Errorf("unsupported or undeterminable media MIME type for %s", mediaURL)
	}
	return data, mimeType, nil
}

func mediaMIMEType(contentType, mediaURL string) string {
	supported := func(m string) bool {
		return strings.HasPrefix(m, "audio/") || strings.HasPrefix(m, "image/")
	}
	if contentType != "" {
		if parsed, _, err := mime.ParseMediaType(contentType); err == nil && supported(parsed) {
			return parsed
		}
	}
	byExt := mime.TypeByExtension(filepath.Ext(mediaURL))
	if parsed, _, err := mime.ParseMediaType(byExt); err == nil && supported(parsed) {
		return parsed
	}
	return ""
}

// parseScoreAndFeedback splits a "Score: x\nFeedback: ..." reply.
func parseScoreAndFeedback(rawResponse string) (scoreStr string, feedbackStr string, err error) {
	scorePrefix := "Score:"
	feedbackPrefix := "Feedback:"

	scoreIndex := strings.Index(rawResponse, scorePrefix)
	feedbackIndex := strings.Index(rawResponse, feedbackPrefix)

	if scoreIndex == -1 {
		return "", rawResponse, fmt.Errorf("response does not contain 'Score:' prefix")
	}

	endOfScoreLine := strings.Index(rawResponse[scoreIndex:], "\n")
	if endOfScoreLine == -1 {
		scoreStr = strings.TrimSpace(rawResponse[scoreIndex+len(scorePrefix):])
	} else {
		scoreStr = strings.TrimSpace(rawResponse[scoreIndex+len(scorePrefix) : scoreIndex+endOfScoreLine])
	}

	switch {
	case feedbackIndex != -1 && feedbackIndex > scoreIndex:
		feedbackStr = strings.TrimSpace(rawResponse[feedbackIndex+len(feedbackPrefix):])
	case endOfScoreLine != -1 && len(rawResponse) > scoreIndex+endOfScoreLine+1:
		feedbackStr = strings.TrimSpace(rawResponse[scoreIndex+endOfScoreLine+1:])
	default:
		feedbackStr = "Feedback not found in the expected format after the score."
	}

	if parts := strings.Fields(scoreStr); len(parts) > 0 {
		scoreStr = parts[0]
	}
	return scoreStr, feedbackStr, nil
}

func buildGradingPrompt(question *model.Question, skill model.SkillType, answer *model.UserAnswer, withMedia bool) string {
	var b strings.Builder
	b.WriteString("You are an experienced IELTS examiner.\n")
	switch question.Type {
	case model.QuestionEssay:
		fmt.Fprintf(&b, "Evaluate the candidate's %s response using the IELTS criteria: Task Achievement/Response, Coherence and Cohesion, Lexical Resource, Grammatical Range and Accuracy.\n\n", skill)
		b.WriteString("Task Prompt:\n---\n")
		b.WriteString(question.Prompt)
		b.WriteString("\n---\n\nCandidate's Answer:\n---\n")
		b.WriteString(answer.TextAnswer)
		b.WriteString("\n---\n\n")
	case model.QuestionSpeakingRecording:
		b.WriteString("Evaluate the candidate's spoken answer using the IELTS criteria: Fluency and Coherence, Lexical Resource, Grammatical Range and Accuracy, Pronunciation.\n\n")
		b.WriteString("Speaking Prompt:\n---\n")
		b.WriteString(question.Prompt)
		b.WriteString("\n---\n\n")
		if withMedia {
			b.WriteString("The candidate's recording is attached above.\n")
		}
		if strings.TrimSpace(answer.TextAnswer) != "" {
			b.WriteString("Transcript provided by the candidate:\n---\n")
			b.WriteString(answer.TextAnswer)
			b.WriteString("\n---\n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, `Format your response strictly as:
Score: [a number from 0.0 to %.1f]
Feedback:
[strengths, specific errors with corrections, and advice for improvement]
`, question.Points)
	return b.String()
}

func (s *geminiLLMService) ScoreAndFeedbackAnswer(ctx context.Context, question *model.Question, skill model.SkillType, answer *model.UserAnswer) (string, float64, error) {
	if s.client == nil {
		return "", 0, ErrAssistantUnavailable
	}
	if !question.Type.RequiresManualGrading() {
		return "", 0, fmt.Errorf("%w: %s", ErrNotManuallyGradable, question.Type)
	}

	var parts []genai.Part
	withMedia := false
	if answer.MediaURL != nil && *answer.MediaURL != "" {
		data, mimeType, err := s.fetchMediaData(ctx, *answer.MediaURL)
		if err != nil {
			log.Error().Err(err).Str("mediaURL", *answer.MediaURL).Msg("Failed to fetch answer media for assistant")
			return "", 0, err
		}
		parts = append(parts, genai.Blob{MIMEType: mimeType, Data: data})
		withMedia = true
	}
	parts = append(parts, genai.Text(buildGradingPrompt(question, skill, answer, withMedia)))

	resp, err := s.client.GenerateContent(ctx, parts...)
	if err != nil {
		log.Error().Err(err).Str("questionType", string(question.Type)).Msg("Gemini API error during scoring")
		return "", 0, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", 0, fmt.Errorf("gemini returned no content")
	}

	var full strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			full.WriteString(string(txt))
		}
	}
	return scoreFromReply(full.String(), question.Points)
}

// scoreFromReply parses a model reply and clamps the score to [0, maxScore].
func scoreFromReply(reply string, maxScore float64) (string, float64, error) {
	if reply == "" {
		return "", 0, fmt.Errorf("gemini returned no text content")
	}
	scoreStr, feedback, err := parseScoreAndFeedback(reply)
	if err != nil {
		log.Warn().Err(err).Str("rawResponse", reply).Msg("Failed to parse score and feedback from Gemini response")
		return "", 0, err
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(scoreStr), 64)
	if err != nil {
		return feedback, 0, fmt.Errorf("could not parse score value %q from AI response", scoreStr)
	}
	return strings.TrimSpace(feedback), clamp(score, 0, maxScore), nil
}
