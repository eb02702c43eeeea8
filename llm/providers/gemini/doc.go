// Copyright 2026 AgentChat Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 gemini 通过 google.golang.org/genai SDK 接入 Google Gemini：

  - Complete：人设作为 SystemInstruction，assistant 轮次映射为 model 角色
  - Transcribe：音频以内联数据随转写指令一起发送，约定哨兵文本表示无语音
  - Synthesize：请求 AUDIO 模态，返回的 24kHz 单声道 16bit PCM 封装为 WAV

SDK 返回的 APIError 按 HTTP 状态码映射为类型化错误。
*/
package gemini
