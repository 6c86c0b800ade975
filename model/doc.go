// Package model is the boundary between agents and language models.
//
// A Model turns a Request (instructions, conversation contents, offered
// tools) into a stream of Responses ending in one final response. The
// openai and anthropic subpackages adapt vendor SDKs; ScriptedModel and
// FuncModel give tests and the offline demos a deterministic model.
package model
