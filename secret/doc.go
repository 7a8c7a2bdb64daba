// Package secret resolves configuration values that carry credentials: the
// database DSN, the LLM API key, the Redis password and the fallback
// caller credential.
//
// A value is first expanded with ExpandEnvStrict, then any reference of the
// form secretref:<provider>:<ref> is replaced by the provider's answer:
//
//	dsn: postgres://events:secretref:file:pg_password@db:5432/events
//	llm:
//	  api_key: secretref:env:OPENAI_API_KEY
//
// The env and file providers are registered in DefaultRegistry.
package secret
