// Package script turns a free-text product prompt into a scene-by-scene video script.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"video-ads/internal/apperr"
	"video-ads/internal/logger"
	"video-ads/internal/models"
)

const systemPrompt = `You are an expert video ad scriptwriter. Your job is to create engaging, scroll-stopping promotional video scripts optimized for social media platforms like Instagram Reels, TikTok, and YouTube Shorts.

Create a structured script with multiple scenes that:
1. Hook viewers in the first 3 seconds
2. Clearly communicate the value proposition
3. Include visual descriptions that are vivid and cinematic
4. Use text overlays for key messages
5. End with a strong call-to-action
6. Total duration should be 15-60 seconds

Leave textOverlay, audioDescription or colorScheme empty when a scene or the script does not need one.`

// Completer sends one system/user message pair to a language model and
// returns the raw JSON content of the reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Generator struct {
	completer Completer
}

func NewGenerator(completer Completer) *Generator {
	return &Generator{completer: completer}
}

// scriptResponse is the structured reply requested from the model. Every field
// is required so the schema can be used in strict mode.
type scriptResponse struct {
	Title         string          `json:"title" jsonschema_description:"Short title of the ad."`
	TotalDuration float64         `json:"totalDuration" jsonschema_description:"Total runtime in seconds, between 15 and 60."`
	Style         string          `json:"style" jsonschema_description:"Overall visual style, e.g. Modern, energetic, professional."`
	ColorScheme   string          `json:"colorScheme" jsonschema_description:"Color scheme of the ad, or an empty string."`
	Scenes        []sceneResponse `json:"scenes" jsonschema_description:"Ordered scenes of the ad."`
}

type sceneResponse struct {
	SceneNumber       int     `json:"sceneNumber" jsonschema_description:"1-based position of the scene."`
	Duration          float64 `json:"duration" jsonschema_description:"Scene length in seconds."`
	VisualDescription string  `json:"visualDescription" jsonschema_description:"Vivid, cinematic description of what is on screen."`
	TextOverlay       string  `json:"textOverlay" jsonschema_description:"Bold overlay text for the key message, or an empty string."`
	AudioDescription  string  `json:"audioDescription" jsonschema_description:"Music or voice-over for the scene, or an empty string."`
}

// GenerateScript asks the model for a script and parses it. The total duration
// is always recomputed from the scenes.
func (g *Generator) GenerateScript(ctx context.Context, prompt string) (*models.VideoScript, error) {
	content, err := g.completer.Complete(ctx, systemPrompt, "Create a promotional video script for: "+prompt)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Script generation call failed")
		return nil, &apperr.GenerationError{Message: "model call failed", Err: err}
	}
	if strings.TrimSpace(content) == "" {
		return nil, &apperr.GenerationError{Message: "no response from model"}
	}

	return ParseScript(content)
}

// ParseScript decodes a model reply into a VideoScript.
func ParseScript(content string) (*models.VideoScript, error) {
	var resp scriptResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, &apperr.GenerationError{Message: "invalid script structure", Err: err}
	}
	if resp.Scenes == nil {
		return nil, &apperr.GenerationError{Message: "invalid script structure: missing scenes"}
	}
	if len(resp.Scenes) == 0 {
		return nil, &apperr.GenerationError{Message: "invalid script structure: no scenes"}
	}

	script := &models.VideoScript{
		Title:       resp.Title,
		Style:       resp.Style,
		ColorScheme: resp.ColorScheme,
		Scenes:      make([]models.Scene, 0, len(resp.Scenes)),
	}
	for i, s := range resp.Scenes {
		if s.Duration <= 0 {
			return nil, &apperr.GenerationError{Message: fmt.Sprintf("scene %d has a non-positive duration", i+1)}
		}
		if strings.TrimSpace(s.VisualDescription) == "" {
			return nil, &apperr.GenerationError{Message: fmt.Sprintf("scene %d has no visual description", i+1)}
		}
		script.Scenes = append(script.Scenes, models.Scene{
			SceneNumber:       i + 1,
			Duration:          s.Duration,
			VisualDescription: s.VisualDescription,
			TextOverlay:       s.TextOverlay,
			AudioDescription:  s.AudioDescription,
		})
	}
	script.TotalDuration = script.SceneDuration()

	return script, nil
}

// Flatten renders the script as the single text prompt sent to the renderer.
func Flatten(script *models.VideoScript) string {
	lines := make([]string, 0, len(script.Scenes))
	for _, scene := range script.Scenes {
		line := fmt.Sprintf("Scene %d (%ss): %s", scene.SceneNumber, formatSeconds(scene.Duration), scene.VisualDescription)
		if scene.TextOverlay != "" {
			line += ` [Text: "` + scene.TextOverlay + `"]`
		}
		lines = append(lines, line)
	}

	var b strings.Builder
	b.WriteString("Create an engaging promotional video with the following scenes:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nStyle: ")
	b.WriteString(script.Style)
	if script.ColorScheme != "" {
		b.WriteString("\nColor Scheme: ")
		b.WriteString(script.ColorScheme)
	}
	return b.String()
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
