// Package audio 提供音频格式辅助：格式归一化、MIME 类型映射与 PCM 的 WAV 封装。
package audio

import (
	"encoding/binary"
	"mime"
	"path/filepath"
	"strings"
)

const wavHeaderSize = 44

// 已知格式到 MIME 类型
var mimeTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"webm": "audio/webm",
	"ogg":  "audio/ogg",
	"oga":  "audio/ogg",
	"opus": "audio/opus",
	"flac": "audio/flac",
	"m4a":  "audio/mp4",
	"mp4":  "audio/mp4",
	"aac":  "audio/aac",
	"pcm":  "audio/L16",
	"mpga": "audio/mpeg",
}

var aliases = map[string]string{
	"mpeg":     "mp3",
	"x-wav":    "wav",
	"wave":     "wav",
	"vnd.wave": "wav",
	"x-m4a":    "m4a",
	"x-flac":   "flac",
	"l16":      "pcm",
}

// NormalizeFormat 接受扩展名、文件名或 MIME 类型，返回小写扩展名形式的格式。
// 无法识别时返回空字符串。
func NormalizeFormat(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "/") {
		if mt, _, err := mime.ParseMediaType(s); err == nil {
			s = mt
		}
		s = s[strings.LastIndex(s, "/")+1:]
	} else if ext := filepath.Ext(s); ext != "" {
		s = ext
	}
	s = strings.TrimPrefix(s, ".")
	if a, ok := aliases[s]; ok {
		s = a
	}
	if _, ok := mimeTypes[s]; ok {
		return s
	}
	return ""
}

// MIMEType 返回格式对应的 MIME 类型，未知格式返回 application/octet-stream。
func MIMEType(format string) string {
	if mt, ok := mimeTypes[NormalizeFormat(format)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Extension 返回带点的扩展名，未知格式返回 ".bin"。
func Extension(format string) string {
	if f := NormalizeFormat(format); f != "" {
		return "." + f
	}
	return ".bin"
}

// WrapPCMAsWAV 为小端有符号 PCM 数据加上 44 字节 RIFF/WAVE 头。
func WrapPCMAsWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	wav := make([]byte, wavHeaderSize+dataSize)
	le := binary.LittleEndian

	copy(wav[0:4], "RIFF")
	le.PutUint32(wav[4:8], uint32(36+dataSize))
	copy(wav[8:12], "WAVE")

	copy(wav[12:16], "fmt ")
	le.PutUint32(wav[16:20], 16) // PCM 子块大小
	le.PutUint16(wav[20:22], 1)  // 1 = PCM
	le.PutUint16(wav[22:24], uint16(channels))
	le.PutUint32(wav[24:28], uint32(sampleRate))
	le.PutUint32(wav[28:32], uint32(byteRate))
	le.PutUint16(wav[32:34], uint16(blockAlign))
	le.PutUint16(wav[34:36], uint16(bitsPerSample))

	copy(wav[36:40], "data")
	le.PutUint32(wav[40:44], uint32(dataSize))
	copy(wav[44:], pcm)

	return wav
}

// IsWAV 判断数据是否带有 RIFF/WAVE 头。
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}
