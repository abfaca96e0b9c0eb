package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	TTSModel   string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client provides a lightweight facade over Gemini so providers can focus on
// translating domain requests to API calls. When no API key is configured the
// client produces deterministic synthetic assets instead, which keeps the
// whole pipeline operational in local and CI environments.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	ttsModel   string
	httpClient *http.Client
	logger     *infra.Logger
}

// TextRequest asks for a single structured text completion.
type TextRequest struct {
	Prompt    string
	RequestID string
}

// SpeechRequest asks for synthesized speech of a flattened transcript.
type SpeechRequest struct {
	Text      string
	Voice     string
	Locale    string
	RequestID string
}

// ImageRequest asks for a single rendered image.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
	Locale      string
	RequestID   string
}

// AudioAsset is the normalized representation of synthesized speech.
type AudioAsset struct {
	StorageKey      string
	Format          string
	DurationSeconds int
	Data            []byte
}

// ImageAsset is the normalized representation of a generated image.
type ImageAsset struct {
	StorageKey string
	Format     string
	Width      int
	Height     int
	Data       []byte
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature        float64             `json:"temperature,omitempty"`
	CandidateCount     int                 `json:"candidateCount,omitempty"`
	ResponseMimeType   string              `json:"responseMimeType,omitempty"`
	ResponseModalities []string            `json:"responseModalities,omitempty"`
	SpeechConfig       *geminiSpeechConfig `json:"speechConfig,omitempty"`
}

type geminiSpeechConfig struct {
	VoiceConfig *geminiVoiceConfig `json:"voiceConfig,omitempty"`
}

type geminiVoiceConfig struct {
	PrebuiltVoiceConfig *geminiPrebuiltVoice `json:"prebuiltVoiceConfig,omitempty"`
}

type geminiPrebuiltVoice struct {
	VoiceName string `json:"voiceName,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may pass a
// nil HTTP client; a reusable one with a sensible timeout will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	ttsModel := opts.TTSModel
	if ttsModel == "" {
		ttsModel = "gemini-2.5-flash-preview-tts"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		ttsModel:   ttsModel,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// Remote reports whether a real API key is configured.
func (c *Client) Remote() bool {
	return c.apiKey != ""
}

// GenerateText returns the text of the first candidate for the prompt,
// requesting a JSON response body. It fails when no API key is configured;
// callers carry their own deterministic fallback.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini api key not configured")
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.6,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.model, payload, &response); err != nil {
		return "", err
	}
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
	}
	return "", fmt.Errorf("no text content returned")
}

// GenerateSpeech synthesizes the transcript. Without an API key, or when the
// remote call fails, it renders a deterministic synthetic waveform so the
// rest of the pipeline stays exercised.
func (c *Client) GenerateSpeech(ctx context.Context, req SpeechRequest) (*AudioAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.apiKey == "" {
		return c.syntheticSpeech(req), nil
	}

	asset, err := c.remoteGenerateSpeech(ctx, req)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("model", c.ttsModel).
			Msg("genai: remote speech synthesis failed; falling back to synthetic audio")
		return c.syntheticSpeech(req), nil
	}
	if asset == nil || len(asset.Data) == 0 {
		return c.syntheticSpeech(req), nil
	}
	return asset, nil
}

// GenerateImage renders a single image for the prompt, with the same
// synthetic fallback behavior as speech.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.apiKey == "" {
		return c.syntheticImage(req), nil
	}

	asset, err := c.remoteGenerateImage(ctx, req)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("model", c.model).
			Msg("genai: remote image generation failed; falling back to synthetic asset")
		return c.syntheticImage(req), nil
	}
	if asset == nil || len(asset.Data) == 0 {
		return c.syntheticImage(req), nil
	}
	return asset, nil
}

func (c *Client) remoteGenerateSpeech(ctx context.Context, req SpeechRequest) (*AudioAsset, error) {
	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = "Kore"
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Text}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &geminiSpeechConfig{
				VoiceConfig: &geminiVoiceConfig{
					PrebuiltVoiceConfig: &geminiPrebuiltVoice{VoiceName: voice},
				},
			},
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.ttsModel, payload, &response); err != nil {
		return nil, err
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline audio: %w", err)
			}
			format := part.InlineData.MimeType
			if format == "" {
				format = "audio/wav"
			}
			c.logger.Debug().
				Str("request_id", req.RequestID).
				Str("model", c.ttsModel).
				Msg("genai: synthesized remote audio")
			return &AudioAsset{
				Format:          format,
				DurationSeconds: estimateSpeechSeconds(req.Text),
				Data:            data,
			}, nil
		}
	}
	return nil, fmt.Errorf("no audio content returned")
}

func (c *Client) remoteGenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildImagePrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
			CandidateCount:     1,
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.model, payload, &response); err != nil {
		return nil, err
	}

	width, height := normalizeAspect(req.AspectRatio)
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline image: %w", err)
			}
			format := part.InlineData.MimeType
			if format == "" {
				format = "image/png"
			}
			if w, h := decodeImageDimensions(data); w > 0 && h > 0 {
				width, height = w, h
			}
			c.logger.Debug().
				Str("request_id", req.RequestID).
				Str("model", c.model).
				Msg("genai: generated remote image")
			return &ImageAsset{Format: format, Width: width, Height: height, Data: data}, nil
		}
	}
	return nil, fmt.Errorf("no image content returned")
}

func (c *Client) syntheticSpeech(req SpeechRequest) *AudioAsset {
	seed := deterministicSeed(req.RequestID, req.Text, req.Voice, req.Locale)
	duration := estimateSpeechSeconds(req.Text)
	asset := &AudioAsset{
		StorageKey:      syntheticStorageKey("audio", c.ttsModel, seed, "wav"),
		Format:          "audio/wav",
		DurationSeconds: duration,
		Data:            renderSyntheticAudio(seed, duration),
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.ttsModel).
		Int("duration_s", duration).
		Msg("genai: generated synthetic audio asset")

	return asset
}

func (c *Client) syntheticImage(req ImageRequest) *ImageAsset {
	seed := deterministicSeed(req.RequestID, req.Prompt, req.Locale)
	width, height := normalizeAspect(req.AspectRatio)
	asset := &ImageAsset{
		StorageKey: syntheticStorageKey("image", c.model, seed, "png"),
		Format:     "image/png",
		Width:      width,
		Height:     height,
		Data:       renderSyntheticImage(width, height, seed),
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Msg("genai: generated synthetic image asset")

	return asset
}

func (c *Client) invoke(ctx context.Context, model string, payload any, out any) error {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.baseURL, "/"), url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func buildImagePrompt(req ImageRequest) string {
	var b strings.Builder
	prompt := strings.TrimSpace(req.Prompt)
	if prompt != "" {
		b.WriteString(prompt)
	}
	if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Aspect ratio: ")
		b.WriteString(aspect)
	}
	if locale := strings.TrimSpace(req.Locale); locale != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Locale: ")
		b.WriteString(locale)
	}
	if b.Len() == 0 {
		b.WriteString("Create an informational infographic")
	}
	return b.String()
}

func decodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func syntheticStorageKey(kind, model, seed, ext string) string {
	return fmt.Sprintf("synthetic/%s/%s-%s.%s", url.PathEscape(model), url.PathEscape(kind), seed, ext)
}

const (
	syntheticSampleRate = 16000
	maxSyntheticSeconds = 30
)

// renderSyntheticAudio produces a valid mono 16-bit PCM WAV file whose tone
// sequence is derived from the seed. Duration is capped so placeholder files
// stay small.
func renderSyntheticAudio(seed string, seconds int) []byte {
	if seconds <= 0 {
		seconds = 1
	}
	if seconds > maxSyntheticSeconds {
		seconds = maxSyntheticSeconds
	}
	samples := syntheticSampleRate * seconds
	pcm := make([]byte, 0, samples*2)
	freq := 180.0 + float64(seedByte(seed, 0))
	for i := 0; i < samples; i++ {
		// Step the pitch every half second so the output is audibly segmented.
		step := i / (syntheticSampleRate / 2)
		f := freq + float64(seedByte(seed, step))*1.5
		v := math.Sin(2 * math.Pi * f * float64(i) / syntheticSampleRate)
		sample := int16(v * 12000)
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(sample))
	}

	var buf bytes.Buffer
	dataLen := uint32(len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(syntheticSampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(syntheticSampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)
	return buf.Bytes()
}

func renderSyntheticImage(width, height int, seed string) []byte {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := maxInt(32, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, minInt(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if seed == "" {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	r := mustParseHexByte(segment[0:2])
	g := mustParseHexByte(segment[2:4])
	b := mustParseHexByte(segment[4:6])
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func seedByte(seed string, index int) byte {
	if seed == "" {
		return 0
	}
	return seed[index%len(seed)]
}

func mustParseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

func normalizeAspect(aspect string) (int, int) {
	switch strings.TrimSpace(strings.ToLower(aspect)) {
	case "16:9":
		return 1920, 1080
	case "9:16":
		return 1080, 1920
	case "4:5":
		return 1024, 1280
	case "1:1", "square", "":
		return 1024, 1024
	default:
		parts := strings.Split(aspect, ":")
		if len(parts) == 2 {
			if a, errA := strconv.Atoi(strings.TrimSpace(parts[0])); errA == nil {
				if b, errB := strconv.Atoi(strings.TrimSpace(parts[1])); errB == nil && a > 0 && b > 0 {
					width := 1024
					height := int(float64(width) * float64(b) / float64(a))
					return width, height
				}
			}
		}
		return 1024, 1024
	}
}

func estimateSpeechSeconds(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 5
	}
	// Roughly 150 words per minute of speech.
	seconds := (words * 60) / 150
	if seconds < 5 {
		return 5
	}
	return seconds
}
