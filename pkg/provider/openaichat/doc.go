// Package openaichat implements provider.Provider against OpenAI-compatible
// Chat Completions backends (OpenAI, vLLM, LiteLLM proxies). Conversation
// turns are translated to the chat message format, tool descriptors to
// function tools, and the first choice of the reply back to an assistant
// turn.
package openaichat
