// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package config 提供 osforge 的配置加载功能。

# 概述

config 包负责将一次构建运行所需的配置聚合为单个 Config 值，
按 "默认值 -> YAML 文件 -> 环境变量" 的优先级合并，并在加载后
立即校验。它是一个薄的加载层：没有运行时热重载或管理 API，
一次运行从头到尾只加载一次。

# 核心结构

  - Config: 顶层配置聚合，涵盖 LLM、Agents、Kernel、
    Workspace、Workflow、Log、Telemetry
  - Loader: 配置加载器，支持 Builder 模式链式设置
    文件路径、环境变量前缀与自定义验证器
  - ArchProfileDoc: 独立于 Config 的按架构 YAML 配置文档，
    见 archprofile.go 与 Open Question 的取舍说明

# 主要能力

  - 多源加载: YAML 文件、环境变量（OSFORGE_ 前缀）、默认值
  - 配置验证: 内置基础校验 + 自定义 ValidateFunc 钩子

# 使用示例

	cfg, err := config.NewLoader().
		WithConfigPath("config.yaml").
		WithEnvPrefix("OSFORGE").
		Load()
*/
package config
