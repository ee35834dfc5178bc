/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package global

//goland:noinspection GoCommentStart,GoUnusedConst,GoUnusedConst,GoUnusedConst
const (
	// MCP Tool Names - System
	ToolHealth = "health"

	// MCP Tool Names - Scraping proxy
	ToolScrape           = "scorch_scrape"
	ToolMap              = "scorch_map"
	ToolSearch           = "scorch_search"
	ToolCrawl            = "scorch_crawl"
	ToolCheckCrawlStatus = "scorch_check_crawl_status"
	ToolExtract          = "scorch_extract"

	// MCP Tool Names - Agent
	ToolAgent                = "scorch_agent"
	ToolAgentStatus          = "scorch_agent_status"
	ToolAgentModels          = "scorch_agent_models"
	ToolAgentRateLimitStatus = "scorch_agent_rate_limit_status"

	// Origin label attached to every request forwarded to the scraping engine
	OriginLabel = "scorchcrawl-mcp"

	// AgentJob status constants
	AgentJobStatusProcessing  = "processing"
	AgentJobStatusCompleted   = "completed"
	AgentJobStatusFailed      = "failed"
	AgentJobStatusRateLimited = "rate_limited"

	// Identity sentinel used when no per-request token is supplied
	ServerIdentity = "__server__"

	// MaxPromptLength bounds the length of an agent prompt
	MaxPromptLength = 10000

	// Rate limit / admission core defaults (overridable via environment, see config package)
	DefaultMaxGlobalConcurrency  = 10
	DefaultMaxPerUserConcurrency = 3
	DefaultWindowMs              = 60_000
	DefaultMaxGlobalPerWindow    = 60
	DefaultMaxPerUserPerWindow   = 20
	DefaultQuotaThresholdPercent = 10
	DefaultStaleJobTimeoutMs     = 10 * 60 * 1000
	DefaultGCIntervalMs          = 30 * 1000
	QuotaStaleGraceMs            = 5 * 60 * 1000
	QuotaEvictAfterMs            = 30 * 60 * 1000
	ClientCacheEvictAfterMs      = 30 * 60 * 1000
	JobRetentionMs               = 60 * 60 * 1000

	// SPA-Shell Detector constants
	MinMeaningfulTextLength = 200
	ScriptHeavyRatio        = 0.65

	// LocalFetchScraper defaults
	DefaultFetchTimeoutSeconds = 30

	// Environment variable names
	EnvMCPBindHost           = "SCORCHCRAWL_MCP_HOST"
	EnvMCPBindPort           = "SCORCHCRAWL_MCP_PORT"
	EnvAPIBindHost           = "SCORCHCRAWL_API_HOST"
	EnvAPIBindPort           = "SCORCHCRAWL_API_PORT"
	EnvScrapeAPIURL          = "SCORCHCRAWL_API_URL"
	EnvScrapeAPIKey          = "SCORCHCRAWL_API_KEY"
	EnvCopilotToken          = "SCORCHCRAWL_COPILOT_TOKEN"
	EnvCopilotCLIPath        = "SCORCHCRAWL_COPILOT_CLI_PATH"
	EnvAllowedModels         = "SCORCHCRAWL_ALLOWED_MODELS"
	EnvDefaultModel          = "SCORCHCRAWL_DEFAULT_MODEL"
	EnvMaxGlobalConcurrency  = "SCORCHCRAWL_MAX_GLOBAL_CONCURRENCY"
	EnvMaxPerUserConcurrency = "SCORCHCRAWL_MAX_USER_CONCURRENCY"
	EnvWindowMs              = "SCORCHCRAWL_WINDOW_MS"
	EnvMaxGlobalPerWindow    = "SCORCHCRAWL_MAX_GLOBAL_PER_WINDOW"
	EnvMaxPerUserPerWindow   = "SCORCHCRAWL_MAX_USER_PER_WINDOW"
	EnvQuotaThresholdPercent = "SCORCHCRAWL_QUOTA_THRESHOLD_PERCENT"
	EnvStaleJobTimeoutMs     = "SCORCHCRAWL_STALE_JOB_TIMEOUT_MS"
	EnvGCIntervalMs          = "SCORCHCRAWL_GC_INTERVAL_MS"
	EnvBYOKProviderType      = "SCORCHCRAWL_BYOK_PROVIDER"
	EnvBYOKBaseURL           = "SCORCHCRAWL_BYOK_BASE_URL"
	EnvBYOKAPIKey            = "SCORCHCRAWL_BYOK_API_KEY"
	EnvCloudService          = "SCORCHCRAWL_CLOUD_SERVICE"
	EnvLocalProxy            = "SCORCHCRAWL_LOCAL_PROXY"
	EnvSafeMode              = "SCORCHCRAWL_SAFE_MODE"
	EnvLogFile               = "SCORCHCRAWL_LOG_FILE"
	EnvLogLevel              = "SCORCHCRAWL_LOG_LEVEL"
	EnvMCPTransport          = "MCP_TRANSPORT"
	EnvMCPHTTPAddr           = "MCP_HTTP_ADDR"

	// Identity header names (HTTP transport)
	HeaderCopilotToken  = "x-copilot-token"
	HeaderGithubToken   = "x-github-token"
	HeaderAuthorization = "authorization"
	HeaderAPIKey        = "x-scorchcrawl-api-key"
	HeaderAPIKeyAlt     = "x-api-key"

	// BYOK provider type constants
	BYOKProviderOpenAI    = "openai"
	BYOKProviderAzure     = "azure"
	BYOKProviderAnthropic = "anthropic"

	// localProxy URL query parameter name, stripped before forwarding to the engine
	LocalProxyQueryParam = "localProxy"

	// Log Levels
	LogLevelDebug = "DEBUG"
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
	LogLevelFatal = "FATAL"
)
