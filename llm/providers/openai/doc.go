// Package openai 提供 OpenAI 变体：gpt-4o-mini 对话、gpt-4o-transcribe 转写、
// gpt-4o-mini-tts 合成，均基于 openaicompat 线协议实现。
package openai
