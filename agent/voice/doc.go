// 版权所有 2024 AgentChat Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 voice 实现语音轮次的前后处理。

# 概述

入站方向把上传的音频转写为文本，出站方向把回复合成为音频并写入产物存储。
两个方向互相独立：只有当发起轮次是语音时，编排器才会调用出站合成。

# 主要能力

  - Pipeline.Transcribe：校验格式与大小，调用 Provider 转写；
    "未检测到语音"返回 USER_INPUT_EMPTY，而不是空文本。
    转写成功后保存上传音频，路径记录到用户消息
  - Pipeline.Speak：合成并保存回复音频。任何失败都归一为
    SYNTHESIS_FAILED，由编排器降级为纯文本回复
  - VoiceMetrics：转写、静音、合成与失败计数
*/
package voice
