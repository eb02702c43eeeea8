// Package openaicompat provides the shared implementation for every
// provider that speaks the OpenAI wire protocol: chat completions,
// audio transcriptions and audio speech.
//
// The openai and groq variants embed openaicompat.Provider and only
// override what differs:
//
//   - Provider name and base URL
//   - Chat, transcription and speech models
//   - Voice and audio format
//   - Custom headers (if any)
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "groq",
//	    APIKey:       cfg.APIKey,
//	    BaseURL:      "https://api.groq.com/openai",
//	    Chat:         providers.ChatConfig{Model: "llama-3.3-70b-versatile"},
//	    Speech:       providers.SpeechConfig{SpeechModel: "playai-tts", Voice: "Fritz-PlayAI", Format: "wav"},
//	}, logger)
package openaicompat
