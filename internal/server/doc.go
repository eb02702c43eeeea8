// 版权所有 2024 AgentChat Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 AgentChat 的 HTTP 服务器生命周期：非阻塞启动、
优雅关闭与系统信号监听。

# 核心类型

  - Manager：封装 http.Server 与 net.Listener，提供 Start/Shutdown/
    WaitForShutdown。API 服务与独立的 metrics 服务各用一个 Manager。
  - Config：监听地址、读写超时、关闭超时与可选的 TLS 证书。

配置了证书时使用 tlsutil.DefaultTLSConfig 的加固参数以 HTTPS 监听。
WaitForShutdown 在收到 SIGINT/SIGTERM、ctx 结束或服务异常退出时
触发关闭，进行中的轮次在 ShutdownTimeout 内排空。
*/
package server
