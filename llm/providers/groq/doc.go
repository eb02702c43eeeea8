// Package groq 提供 Groq 变体。Groq 在 /openai 路径下暴露 OpenAI 兼容协议：
// llama-3.3-70b-versatile 对话、whisper-large-v3-turbo 转写、playai-tts 合成（wav）。
package groq
