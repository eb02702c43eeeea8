package fixtures

import (
	"github.com/BaSui01/agentchat/internal/audio"
	"github.com/BaSui01/agentchat/llm"
)

// SilentWAV 返回 ms 毫秒的 16kHz 单声道静音 WAV
func SilentWAV(ms int) []byte {
	samples := 16000 * ms / 1000
	return audio.WrapPCMAsWAV(make([]byte, samples*2), 16000, 1, 16)
}

// VoiceClip 返回一段可作为用户语音输入的 WAV
func VoiceClip() *llm.Audio {
	return &llm.Audio{Data: SilentWAV(250), Format: "wav"}
}

// SpeechReply 返回一段模拟合成语音
func SpeechReply() *llm.Audio {
	return &llm.Audio{Data: []byte("ID3-fake-mp3-frame"), Format: "mp3"}
}
