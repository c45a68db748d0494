// Package translate detects the language of a prompt and translates it to
// English, the working language of the generation models. Every failure is
// soft: the caller always gets back usable text.
package translate

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"videogen/internal/llm"
)

// Result describes the outcome of a translation attempt.
type Result struct {
	Original         string
	DetectedLanguage string
	Translated       string
	WasTranslated    bool
}

// Completer is the slice of the llm client the translator needs.
type Completer interface {
	Complete(ctx context.Context, req llm.CompleteRequest) (string, error)
}

// Translator turns prompts in any language into English ones.
type Translator struct {
	client Completer
}

func NewTranslator(client Completer) *Translator {
	return &Translator{client: client}
}

// DetectLanguage returns the 2-letter language code of the text, or "en"
// when detection fails.
func (t *Translator) DetectLanguage(ctx context.Context, text string) (string, error) {
	content := fmt.Sprintf(`Detect the language of this text and respond with ONLY the 2-letter language code (e.g., en, es, fr, zh, hi, ta, ar).

Text: %q

Language code:`, text)

	response, err := t.client.Complete(ctx, llm.CompleteRequest{
		Messages:    []llm.Message{{Role: "user", Content: content}},
		MaxTokens:   10,
		Temperature: 0.1,
	})
	if err != nil {
		return "en", err
	}

	code := strings.ToLower(strings.TrimSpace(response))
	if len(code) > 2 {
		code = code[:2]
	}
	if !validLanguageCode(code) {
		return "en", nil
	}
	return code, nil
}

// ToEnglish translates text to English. The source language is detected
// unless sourceLang is a concrete code. On any error the original text is
// returned unchanged alongside the error so the pipeline can continue.
func (t *Translator) ToEnglish(ctx context.Context, text, sourceLang string, onProgress func(string)) (Result, error) {
	progress(onProgress, "Detecting language...")

	detected := sourceLang
	if detected == "" || detected == "auto" {
		var err error
		detected, err = t.DetectLanguage(ctx, text)
		if err != nil {
			return Result{Original: text, DetectedLanguage: "unknown", Translated: text}, err
		}
	}

	if detected == "en" {
		return Result{Original: text, DetectedLanguage: "en", Translated: text}, nil
	}

	progress(onProgress, fmt.Sprintf("Translating from %s to English...", detected))

	content := fmt.Sprintf(`Translate the following text to English. Output ONLY the English translation, nothing else.

Original text (%s): %q

English translation:`, detected, text)

	response, err := t.client.Complete(ctx, llm.CompleteRequest{
		Messages:    []llm.Message{{Role: "user", Content: content}},
		MaxTokens:   200,
		Temperature: 0.3,
	})
	if err != nil {
		return Result{Original: text, DetectedLanguage: detected, Translated: text}, err
	}

	translated := strings.TrimSpace(response)
	translated = strings.Trim(translated, `"`)
	if translated == "" {
		translated = text
	}

	progress(onProgress, "Translation complete!")

	return Result{
		Original:         text,
		DetectedLanguage: detected,
		Translated:       translated,
		WasTranslated:    translated != text,
	}, nil
}

func validLanguageCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	_, err := language.Parse(code)
	return err == nil
}

func progress(fn func(string), msg string) {
	if fn != nil {
		fn(msg)
	}
}
