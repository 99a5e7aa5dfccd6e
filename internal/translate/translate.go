// Package translate 词语与提示的在线翻译
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultGoogleURL   = "https://translate.googleapis.com/translate_a/single"
	DefaultMyMemoryURL = "https://api.mymemory.translated.net/get"
	DefaultTimeout     = 10 * time.Second

	// SourceLanguage 词库语言
	SourceLanguage = "en"
)

var (
	ErrUnavailable         = errors.New("translation unavailable")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// SupportedLanguages 可选的游戏语言
var SupportedLanguages = map[string]string{
	"en": "English", "ml": "Malayalam", "hi": "Hindi", "ta": "Tamil", "te": "Telugu",
	"kn": "Kannada", "es": "Spanish", "fr": "French", "de": "German", "ar": "Arabic",
	"zh-CN": "Chinese (Simplified)", "zh-TW": "Chinese (Traditional)", "ja": "Japanese",
	"ko": "Korean", "ru": "Russian", "pt": "Portuguese", "it": "Italian", "tr": "Turkish",
	"vi": "Vietnamese", "th": "Thai", "id": "Indonesian", "bn": "Bengali", "ur": "Urdu",
	"fa": "Persian", "mr": "Marathi", "gu": "Gujarati", "pa": "Punjabi", "pl": "Polish",
	"uk": "Ukrainian", "nl": "Dutch", "el": "Greek", "sv": "Swedish", "no": "Norwegian",
	"da": "Danish", "fi": "Finnish", "cs": "Czech", "ro": "Romanian", "hu": "Hungarian",
	"he": "Hebrew", "ms": "Malay", "tl": "Tagalog", "sw": "Swahili", "af": "Afrikaans",
}

// IsSupported 语言代码是否受支持
func IsSupported(lang string) bool {
	_, ok := SupportedLanguages[lang]
	return ok
}

// Options 翻译客户端参数
type Options struct {
	GoogleURL   string
	MyMemoryURL string
	Timeout     time.Duration
}

// Content 翻译后的词与提示
type Content struct {
	Word string `json:"translatedWord"`
	Hint string `json:"translatedHint"`
}

// Client 翻译客户端：优先 Google gtx，失败时回退 MyMemory
type Client struct {
	httpClient  *http.Client
	googleURL   string
	myMemoryURL string
	logger      *slog.Logger
}

// NewClient 创建翻译客户端
func NewClient(opts Options) *Client {
	if opts.GoogleURL == "" {
		opts.GoogleURL = DefaultGoogleURL
	}
	if opts.MyMemoryURL == "" {
		opts.MyMemoryURL = DefaultMyMemoryURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		httpClient:  &http.Client{Timeout: opts.Timeout},
		googleURL:   opts.GoogleURL,
		myMemoryURL: opts.MyMemoryURL,
		logger:      slog.Default(),
	}
}

// TranslateGameContent 并发翻译词与提示，任一失败则返回错误
func (c *Client) TranslateGameContent(ctx context.Context, word, hint, lang string) (Content, error) {
	if lang == "" || lang == SourceLanguage {
		return Content{Word: word, Hint: hint}, nil
	}

	var out Content
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.TranslateText(gctx, word, lang)
		out.Word = v
		return err
	})
	g.Go(func() error {
		v, err := c.TranslateText(gctx, hint, lang)
		out.Hint = v
		return err
	})
	if err := g.Wait(); err != nil {
		return Content{}, err
	}
	return out, nil
}

// TranslateText 翻译单段文本
// Google 网络错误直接返回；响应异常时回退 MyMemory；两者都无结果时返回 ErrUnavailable
func (c *Client) TranslateText(ctx context.Context, text, lang string) (string, error) {
	if lang == "" || lang == SourceLanguage || strings.TrimSpace(text) == "" {
		return text, nil
	}

	translated, err := c.google(ctx, text, lang)
	if err == nil {
		return translated, nil
	}
	var transportErr *url.Error
	if errors.As(err, &transportErr) || ctx.Err() != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.logger.Warn("Google translation failed, trying fallback", "lang", lang, "error", err)

	translated, ok, err := c.myMemory(ctx, text, lang)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		c.logger.Warn("Translation failed on both providers", "lang", lang, "text", text)
		return "", fmt.Errorf("%w: no translation for %q", ErrUnavailable, lang)
	}
	return translated, nil
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// google 返回嵌套数组 [[["Translated","Original",...],...],...]
func (c *Client) google(ctx context.Context, text, lang string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", SourceLanguage)
	q.Set("tl", lang)
	q.Set("dt", "t")
	q.Set("q", text)

	var data []any
	if err := c.get(ctx, c.googleURL+"?"+q.Encode(), &data); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty google response")
	}
	parts, ok := data[0].([]any)
	if !ok || len(parts) == 0 {
		return "", errors.New("malformed google response")
	}

	var b strings.Builder
	for _, part := range parts {
		seg, ok := part.([]any)
		if !ok || len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("malformed google response")
	}
	return b.String(), nil
}

type myMemoryResponse struct {
	ResponseStatus any `json:"responseStatus"`
	ResponseData   struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
}

func (c *Client) myMemory(ctx context.Context, text, lang string) (string, bool, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", SourceLanguage+"|"+lang)

	var data myMemoryResponse
	if err := c.get(ctx, c.myMemoryURL+"?"+q.Encode(), &data); err != nil {
		return "", false, err
	}
	if fmt.Sprint(data.ResponseStatus) != "200" || data.ResponseData.TranslatedText == "" {
		return "", false, nil
	}
	return data.ResponseData.TranslatedText, true, nil
}
